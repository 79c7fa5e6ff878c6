package agent

import "github.com/rs/zerolog"

// zlog is an optional structured logger. The loop stays silent unless one is
// installed.
var zlog *zerolog.Logger

// SetLogger installs a structured logger for loop events.
func SetLogger(l zerolog.Logger) { zlog = &l }

// logDebug returns a debug event, or nil when no logger is installed.
// zerolog treats a nil event as a no-op.
func logDebug() *zerolog.Event {
	if zlog == nil {
		return nil
	}
	return zlog.Debug()
}
