package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/animeshkundu/fix/internal/agent"
	"github.com/animeshkundu/fix/internal/discover"
	"github.com/animeshkundu/fix/internal/llm"
	"github.com/animeshkundu/fix/internal/registry"
)

// SetupLogging builds the console logger and hands it to the library
// packages. Level is warn unless -v asks for debug; FIX_LOG_LEVEL overrides
// both. The writer is stderr: stdout belongs to the corrected command.
func SetupLogging(verbose bool) {
	lvl := zerolog.WarnLevel
	if verbose {
		lvl = zerolog.DebugLevel
	}
	if v := os.Getenv("FIX_LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			lvl = parsed
		}
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()

	agent.SetLogger(logger)
	discover.SetLogger(logger)
	llm.SetLogger(logger)
	registry.SetLogger(logger)
}
