package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// config is the optional YAML file. All fields may be overridden by flags or
// environment variables.
//
//	dir: /var/cache/bincache
//	bin: default
//	bins: [commands, remote-meta]
type config struct {
	Dir  string   `yaml:"dir"`
	Bin  string   `yaml:"bin"`
	Bins []string `yaml:"bins"`
}

// loadConfig reads $BINCACHE_CONFIG, falling back to
// ~/.config/bincache.yaml. A missing file is not an error.
func loadConfig() (config, error) {
	path := os.Getenv("BINCACHE_CONFIG")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return config{}, nil
		}
		path = filepath.Join(home, ".config", "bincache.yaml")
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config{}, nil
	}
	if err != nil {
		return config{}, err
	}

	var cfg config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}

// cacheDir resolves the base cache directory.
// Precedence:
//  1. BINCACHE_DIR, if set and non-empty
//  2. the config file's dir
//  3. os.UserCacheDir()/bincache
//
// Returns ("", false) if no base can be resolved.
func cacheDir(cfg config) (string, bool) {
	if d := os.Getenv("BINCACHE_DIR"); d != "" {
		return d, true
	}
	if cfg.Dir != "" {
		return cfg.Dir, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "bincache"), true
	}
	return "", false
}
