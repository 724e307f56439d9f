// Package log provides the structured logger used across the simulation
// and baking lanes. Construction paths log at Info/Warn/Error; hot-path
// effect and simulator methods never log above Debug, per the error
// propagation policy (construction fails loud, the audio thread degrades
// quiet).
package log

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a *slog.Logger with the rotating-file sink configuration
// used by the simulation and baking lanes.
type Logger struct {
	*slog.Logger
	file string
}

// Options configures a Logger.
type Options struct {
	// Dir is the directory the rotating log file is written to. If empty,
	// logs are written to stderr only.
	Dir string
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// MaxSizeMB bounds a single log file before rotation. Defaults to 32.
	MaxSizeMB int
}

// New builds a Logger. With a non-empty Dir it writes newline-delimited
// JSON to a lumberjack-rotated file named "spatialaudio.log"; with an
// empty Dir it writes human-readable text to stderr, which is convenient
// for the itest-style scenarios run from the cmd/ demo.
func New(opts Options) *Logger {
	lvl := parseLevel(opts.Level)

	var w io.Writer = os.Stderr
	var file string
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	if opts.Dir != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 32
		}
		file = opts.Dir + "/spatialaudio.log"
		lj := &lumberjack.Logger{
			Filename: file,
			MaxSize:  maxSize,
			MaxAge:   14,
			Compress: true,
		}
		w = lj
		return &Logger{Logger: slog.New(slog.NewJSONHandler(w, handlerOpts)), file: file}
	}

	return &Logger{Logger: slog.New(slog.NewTextHandler(w, handlerOpts)), file: file}
}

// File returns the path logs are being rotated into, or "" if logging to
// stderr only.
func (l *Logger) File() string { return l.file }

func parseLevel(level string) slog.Level {
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

// nop is a Logger that discards everything, used as a safe zero value for
// components constructed without an explicit logger.
var nop = slog.New(slog.NewTextHandler(io.Discard, nil))

// Nop returns a Logger that discards all output.
func Nop() *Logger { return &Logger{Logger: nop} }
