package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
)

// Output formats understood by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatNone    = "none"
)

type Fields map[string]interface{}

// Config selects the logger built by New.
type Config struct {
	Format string `json:"format" validate:"omitempty,oneof=console json none"`
	Level  string `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Color  bool   `json:"color"`
}

var (
	std          zerolog.Logger
	stdSet       bool
	colorEnabled bool
)

// Logger wraps zerolog.Logger so callers can pass Fields maps instead of
// building events. A nil *Logger discards everything.
type Logger struct {
	Z zerolog.Logger
}

// New builds a logger writing to stdout according to cfg.
func New(cfg Config) *Logger {
	return NewWriter(os.Stdout, cfg)
}

// NewWriter is New with an explicit destination.
func NewWriter(out io.Writer, cfg Config) *Logger {
	lvl := ParseLevel(cfg.Level)
	switch strings.ToLower(cfg.Format) {
	case FormatNone:
		return NewNop()
	case FormatJSON:
		return NewJSON(out, lvl)
	default:
		return NewConsole(out, lvl, cfg.Color)
	}
}

// ParseLevel maps a level name to a Level, falling back to info.
func ParseLevel(s string) Level {
	if s == "" {
		return LevelInfo
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return LevelInfo
	}
	return lvl
}

// NewJSON creates a logger emitting one JSON object per line.
func NewJSON(out io.Writer, level Level) *Logger {
	l := zerolog.New(out).With().Timestamp().Logger().Level(level)
	return &Logger{Z: l}
}

// NewConsole creates a zerolog ConsoleWriter-backed logger. When color is true
// the console writer will emit ANSI colors. Time format matches "3:04PM".
func NewConsole(out io.Writer, level Level, color bool) *Logger {
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: "3:04PM", NoColor: !color}
	colorEnabled = color

	colorWrap := func(s string, code string) string {
		if !color {
			return s
		}
		return "\x1b[" + code + "m" + s + "\x1b[0m"
	}

	cw.FormatLevel = func(i interface{}) string {
		s := zerolog.NoLevel
		switch v := i.(type) {
		case string:
			if lvl, err := zerolog.ParseLevel(v); err == nil {
				s = lvl
			}
		case zerolog.Level:
			s = v
		}
		switch s {
		case zerolog.DebugLevel:
			return colorWrap("DBG", "36")
		case zerolog.InfoLevel:
			return colorWrap("INF", "32")
		case zerolog.WarnLevel:
			return colorWrap("WRN", "33")
		case zerolog.ErrorLevel:
			return colorWrap("ERR", "31")
		default:
			return ""
		}
	}

	cw.FormatTimestamp = func(i interface{}) string {
		switch v := i.(type) {
		case time.Time:
			return colorWrap(v.Format("3:04PM"), "2")
		case string:
			return colorWrap(v, "2")
		default:
			return ""
		}
	}

	l := zerolog.New(cw).With().Timestamp().Logger().Level(level)
	return &Logger{Z: l}
}

// Colorize wraps the provided string with ANSI color codes when colors are enabled.
// The `code` is the numeric SGR color code (e.g. "31" for red).
func Colorize(s string, code string) string {
	if !colorEnabled {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

// SetStd replaces the package logger used by wrapper functions.
func SetStd(l *Logger) {
	stdSet = true
	if l == nil {
		std = zerolog.Nop()
		return
	}
	std = l.Z
}

// Std returns the package logger as a *Logger.
func Std() *Logger {
	ensureStd()
	return &Logger{Z: std}
}

// ensureStd installs a colored console logger when SetStd was never called.
func ensureStd() {
	if !stdSet {
		SetStd(NewConsole(os.Stdout, zerolog.InfoLevel, true))
	}
}

func Info(msg string, f Fields) {
	ensureStd()
	emit(std.Info(), msg, f)
}

func Debug(msg string, f Fields) {
	ensureStd()
	emit(std.Debug(), msg, f)
}

func Warn(msg string, f Fields) {
	ensureStd()
	emit(std.Warn(), msg, f)
}

func Error(msg string, f Fields) {
	ensureStd()
	emit(std.Error(), msg, f)
}

// NewNop returns a no-op Logger instance.
func NewNop() *Logger {
	return &Logger{Z: zerolog.Nop()}
}

// With returns a child logger carrying f on every event.
func (l *Logger) With(f Fields) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{Z: l.Z.With().Fields(map[string]interface{}(f)).Logger()}
}

func (l *Logger) Info(msg string, f Fields) {
	if l == nil {
		return
	}
	emit(l.Z.Info(), msg, f)
}

func (l *Logger) Debug(msg string, f Fields) {
	if l == nil {
		return
	}
	emit(l.Z.Debug(), msg, f)
}

func (l *Logger) Warn(msg string, f Fields) {
	if l == nil {
		return
	}
	emit(l.Z.Warn(), msg, f)
}

func (l *Logger) Error(msg string, f Fields) {
	if l == nil {
		return
	}
	emit(l.Z.Error(), msg, f)
}

func emit(e *zerolog.Event, msg string, f Fields) {
	if f != nil {
		e = e.Fields(map[string]interface{}(f))
	}
	e.Msg(msg)
}
