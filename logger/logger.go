// Package logger configures the process-wide slog logger.
//
// Console output uses a compact text format with ANSI colors when the
// destination is a terminal. File output goes through lumberjack so the
// logging config's rotation, retention and compression settings apply.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var defaultLogger *slog.Logger

// ParseLevel converts a string log level to slog.Level.
// Valid levels: debug, info, warn, error. Unknown values fall back to info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m" // red
	case level >= slog.LevelWarn:
		return "\033[33m" // yellow
	case level >= slog.LevelInfo:
		return "\033[36m" // cyan
	default:
		return "\033[90m" // gray
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	if info, err := file.Stat(); err == nil {
		return (info.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// textHandler renders records as "LEVEL message key=value", optionally
// with a timestamp prefix and ANSI colors.
type textHandler struct {
	writer    io.Writer
	level     slog.Level
	useColor  bool
	timestamp bool
	attrs     []slog.Attr
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *textHandler) Handle(_ context.Context, record slog.Record) error {
	var buf strings.Builder

	if h.timestamp && !record.Time.IsZero() {
		buf.WriteString(record.Time.Format("2006/01/02 15:04:05 "))
	}

	levelStr := strings.ToUpper(record.Level.String())
	if levelStr == "WARNING" {
		levelStr = "WARN"
	}
	if h.useColor {
		buf.WriteString(levelColor(record.Level))
		buf.WriteString(levelStr)
		buf.WriteString("\033[0m")
	} else {
		buf.WriteString(levelStr)
	}
	buf.WriteString(" ")
	buf.WriteString(record.Message)

	writeAttr := func(a slog.Attr) {
		buf.WriteString(" ")
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})

	buf.WriteString("\n")
	_, err := h.writer.Write([]byte(buf.String()))
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	combined = append(combined, h.attrs...)
	combined = append(combined, attrs...)
	return &textHandler{
		writer:    h.writer,
		level:     h.level,
		useColor:  h.useColor,
		timestamp: h.timestamp,
		attrs:     combined,
	}
}

func (h *textHandler) WithGroup(_ string) slog.Handler {
	// Groups are flattened; this logger never nests them.
	return h
}

func newHandler(output io.Writer, level slog.Level, format string) slog.Handler {
	switch format {
	case "json":
		return slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	case "verbose":
		return &textHandler{
			writer:    output,
			level:     level,
			useColor:  isTerminal(output),
			timestamp: true,
		}
	default: // "simple"
		return &textHandler{
			writer:   output,
			level:    level,
			useColor: isTerminal(output),
		}
	}
}

// Init installs the default logger writing to output.
// format is one of "simple" (default), "verbose", or "json".
func Init(level slog.Level, output io.Writer, format string) {
	defaultLogger = slog.New(newHandler(output, level, format))
	slog.SetDefault(defaultLogger)
}

// FileConfig controls rotated file logging.
type FileConfig struct {
	Path       string
	MaxSizeMB  int  // rotate after this many megabytes
	MaxAgeDays int  // delete rotated files older than this
	Compress   bool // gzip rotated files
}

// InitWithFile installs a logger that writes to both the console and a
// rotated log file. The returned closer flushes and closes the file sink.
func InitWithFile(level slog.Level, console io.Writer, format string, fc FileConfig) (io.Closer, error) {
	sink := &lumberjack.Logger{
		Filename: fc.Path,
		MaxSize:  fc.MaxSizeMB,
		MaxAge:   fc.MaxAgeDays,
		Compress: fc.Compress,
	}

	handler := &teeHandler{
		console: newHandler(console, level, format),
		file:    newHandler(sink, level, "verbose"),
	}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
	return sink, nil
}

// teeHandler duplicates records to the console and file handlers.
type teeHandler struct {
	console slog.Handler
	file    slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	if h.console.Enabled(ctx, record.Level) {
		firstErr = h.console.Handle(ctx, record)
	}
	if h.file.Enabled(ctx, record.Level) {
		if err := h.file.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{
		console: h.console.WithAttrs(attrs),
		file:    h.file.WithAttrs(attrs),
	}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{
		console: h.console.WithGroup(name),
		file:    h.file.WithGroup(name),
	}
}

// GetLogger returns the default slog logger, initializing it lazily.
func GetLogger() *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelInfo, os.Stderr, "simple")
	}
	return defaultLogger
}
