package logger

import (
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

// Init configures the process-wide slog logger. LOG_LEVEL picks the level,
// DEBUG=true forces debug output.
func Init() {
	level := slog.LevelInfo
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	}
	if os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	Logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(Logger)
}

func active() *slog.Logger {
	if Logger != nil {
		return Logger
	}
	return slog.Default()
}

func Info(msg string, args ...any) {
	active().Info(msg, args...)
}

func Error(msg string, args ...any) {
	active().Error(msg, args...)
}

func Debug(msg string, args ...any) {
	active().Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	active().Warn(msg, args...)
}
