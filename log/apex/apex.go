package apex

import (
	"github.com/apex/log"

	"github.com/unkn0wn-root/bincache"
)

// ApexLogger adapts apex/log for CLI binaries that already use it.
type ApexLogger struct{ L log.Interface }

var _ bincache.Logger = ApexLogger{}

func (a ApexLogger) Debug(msg string, f bincache.Fields) {
	a.L.WithFields(log.Fields(f)).Debug(msg)
}
func (a ApexLogger) Info(msg string, f bincache.Fields) {
	a.L.WithFields(log.Fields(f)).Info(msg)
}
func (a ApexLogger) Warn(msg string, f bincache.Fields) {
	a.L.WithFields(log.Fields(f)).Warn(msg)
}
func (a ApexLogger) Error(msg string, f bincache.Fields) {
	a.L.WithFields(log.Fields(f)).Error(msg)
}
