// Command bincache inspects and edits the cache a CLI tool keeps between
// invocations: read an entry, store one, clear by cid or prefix, sweep
// everything.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/unkn0wn-root/bincache"
	"github.com/unkn0wn-root/bincache/backend/file"
	"github.com/unkn0wn-root/bincache/codec"
	apexlog "github.com/unkn0wn-root/bincache/log/apex"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	initLogger()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	app := newApp(cfg)
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return 0
}

// initLogger sets up apex with a terse handler and a level from BINCACHE_LOG.
func initLogger() {
	level := strings.ToUpper(os.Getenv("BINCACHE_LOG"))
	if level == "" {
		level = "ERROR"
	}
	log.SetHandler(&stderrHandler{})
	log.SetLevelFromString(level)
}

type stderrHandler struct{}

func (h *stderrHandler) HandleLog(e *log.Entry) error {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(os.Stderr, "%s %.1s %s\n", timestamp, strings.ToUpper(e.Level.String()), e.Message)
	return nil
}

func newApp(cfg config) *cli.Command {
	return &cli.Command{
		Name:  "bincache",
		Usage: "bin-scoped cache for CLI tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "bin",
				Usage: "cache bin to operate on",
				Value: cfg.Bin,
			},
		},
		Commands: []*cli.Command{
			getCommand(cfg),
			setCommand(cfg),
			clearCommand(cfg),
			binsCommand(cfg),
			emptyCommand(cfg),
		},
	}
}

// openCache binds a byte-valued cache to the file backend. The cache is an
// optimization layer, so a missing base dir disables it rather than failing.
func openCache(cfg config) (bincache.Cache[[]byte], error) {
	dir, ok := cacheDir(cfg)
	if !ok {
		log.Warn("no cache directory could be resolved; cache disabled")
	}
	return bincache.New[[]byte](bincache.Options[[]byte]{
		Codec:      codec.Bytes{},
		Factory:    file.Factory(dir),
		DefaultBin: cfg.Bin,
		ExtraBins:  func() []string { return cfg.Bins },
		Logger:     apexlog.ApexLogger{L: log.Log},
		Disabled:   !ok,
	})
}

func getCommand(cfg config) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print a cache entry to stdout",
		ArgsUsage: "<cid>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cid := cmd.Args().First()
			if cid == "" {
				return fmt.Errorf("get: cid is required")
			}
			c, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer c.Close(ctx)

			v, ok, err := c.Get(ctx, cmd.String("bin"), cid)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("get: no cache entry for %q", cid)
			}
			_, err = os.Stdout.Write(v)
			return err
		},
	}
}

func setCommand(cfg config) *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "store a cache entry (value from arg or stdin)",
		ArgsUsage: "<cid> [value]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "temporary",
				Usage: "mark the entry removable by the next sweep",
			},
			&cli.DurationFlag{
				Name:  "expire",
				Usage: "expire the entry after this duration",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cid := cmd.Args().First()
			if cid == "" {
				return fmt.Errorf("set: cid is required")
			}

			var value []byte
			if cmd.Args().Len() > 1 {
				value = []byte(cmd.Args().Get(1))
			} else {
				b, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				value = b
			}

			exp := bincache.Permanent()
			switch {
			case cmd.Bool("temporary"):
				exp = bincache.Temporary()
			case cmd.Duration("expire") > 0:
				exp = bincache.ExpiresIn(cmd.Duration("expire"))
			}

			c, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer c.Close(ctx)

			ok, err := c.Set(ctx, cmd.String("bin"), cid, value, exp)
			if err != nil {
				return err
			}
			if !ok {
				log.Warnf("entry %q was not stored", cid)
			}
			return nil
		},
	}
}

func clearCommand(cfg config) *cli.Command {
	return &cli.Command{
		Name:      "clear",
		Usage:     "remove cache entries",
		ArgsUsage: "[cid]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "wildcard",
				Aliases: []string{"w"},
				Usage:   "treat cid as a literal prefix ('*' empties the bin)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "sweep expirable entries out of every known bin",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer c.Close(ctx)

			if cmd.Bool("all") {
				return c.ClearAll(ctx)
			}
			return c.Clear(ctx, cmd.String("bin"), cmd.Args().First(), cmd.Bool("wildcard"))
		},
	}
}

func binsCommand(cfg config) *cli.Command {
	return &cli.Command{
		Name:  "bins",
		Usage: "list known cache bins",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer c.Close(ctx)

			for _, bin := range c.Bins() {
				fmt.Println(bin)
			}
			return nil
		},
	}
}

func emptyCommand(cfg config) *cli.Command {
	return &cli.Command{
		Name:  "empty",
		Usage: "report whether a bin holds any live entries",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer c.Close(ctx)

			empty, err := c.IsEmpty(ctx, cmd.String("bin"))
			if err != nil {
				return err
			}
			fmt.Println(empty)
			return nil
		},
	}
}
