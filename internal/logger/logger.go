package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"

	"github.com/altafino/consultation-report/internal/types"
)

// Setup creates a new logger based on configuration
func Setup(cfg *types.Config) *slog.Logger {
	return New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.IncludeCaller)
}

// New builds a logger writing to w. format is text, json or dev.
func New(w io.Writer, level, format string, addSource bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: addSource,
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "dev":
		handler = devslog.NewHandler(w, &devslog.Options{
			HandlerOptions:    opts,
			MaxSlicePrintSize: 10,
			SortKeys:          true,
			NewLineAfterLog:   true,
		})
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a configured level name to a slog level; unknown names
// fall back to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
