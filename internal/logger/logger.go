package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// output encodings
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	current atomic.Pointer[slog.Logger]
	level   = new(slog.LevelVar)

	exit = os.Exit
)

func init() {
	Configure(os.Getenv("DOCFLOW_ENVIRONMENT"), os.Getenv("DOCFLOW_LOG_LEVEL"))
}

// builds a logger writing to w. level is shared, so a later Configure
// also retunes loggers handed out earlier
func New(w io.Writer, format string, lvl slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lvl}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// production logs JSON to stdout at info, anything else logs text to
// stderr at debug. a non-empty level overrides the default
func Configure(environment, lvl string) {
	format, w, fallback := FormatText, io.Writer(os.Stderr), slog.LevelDebug
	if environment == "production" {
		format, w, fallback = FormatJSON, os.Stdout, slog.LevelInfo
	}

	level.Set(ParseLevel(lvl, fallback))
	use(New(w, format, level))
}

func use(l *slog.Logger) {
	current.Store(l)
	slog.SetDefault(l)
}

// maps a level name to its slog level, or fallback when it is unknown
func ParseLevel(name string, fallback slog.Level) slog.Level {
	var parsed slog.Level
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case "":
		return fallback
	case "warning":
		return slog.LevelWarn
	}
	if err := parsed.UnmarshalText([]byte(name)); err != nil {
		return fallback
	}
	return parsed
}

func Debug(msg string, args ...any) { current.Load().Debug(msg, args...) }
func Info(msg string, args ...any)  { current.Load().Info(msg, args...) }
func Warn(msg string, args ...any)  { current.Load().Warn(msg, args...) }
func Error(msg string, args ...any) { current.Load().Error(msg, args...) }

// logs msg at error level with err attached
func ErrorErr(err error, msg string, args ...any) {
	current.Load().Error(msg, append(args, slog.Any("error", err))...)
}

// ErrorErr, then exit status 1
func FatalErr(err error, msg string, args ...any) {
	ErrorErr(err, msg, args...)
	exit(1)
}
