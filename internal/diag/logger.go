// ABOUTME: Named hclog loggers for internal diagnostics, kept separate from the
// ABOUTME: product-facing swarm.LogEvent stream, grounded on kadirpekel-hector's plugin loader.

package diag

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// New returns a leveled logger named for the component that owns it
// (e.g. "swarm", "config", "node", "permission"). Level defaults to Info,
// or whatever SWARMLOOM_LOG_LEVEL names (trace/debug/info/warn/error).
func New(name string) hclog.Logger {
	level := hclog.Info
	if v := os.Getenv("SWARMLOOM_LOG_LEVEL"); v != "" {
		level = hclog.LevelFromString(v)
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: level,
	})
}
