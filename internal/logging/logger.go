// Package logging provides structured logging for the sequencer runtime.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Config holds logging configuration.
type Config struct {
	Level  LogLevel
	Format string // "text" (default) or "json"
	Output io.Writer
	// Sync is accepted but not consulted: every write already happens
	// under the logger's own mutex, whatever its value.
	Sync    bool
	NoColor bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// Logger is a small structured logger: a message, a level, and a set of
// key=value context fields accumulated by With*.
type Logger struct {
	out    io.Writer
	level  LogLevel
	format string
	mu     *sync.Mutex
	fields []field
}

type field struct {
	key string
	val any
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// NewLogger creates a new logger from config, defaulting to stderr/info/text.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	format := config.Format
	if format == "" {
		format = "text"
	}
	return &Logger{
		out:    out,
		level:  config.Level,
		format: format,
		mu:     &sync.Mutex{},
	}
}

// Default returns the process default logger, creating it on first use.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault replaces the process default logger.
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// with returns a child logger carrying an additional context field.
// The mutex and output are shared with the parent so ordering across
// a program/state-set/channel hierarchy of loggers is preserved.
func (l *Logger) with(key string, val any) *Logger {
	child := &Logger{
		out:    l.out,
		level:  l.level,
		format: l.format,
		mu:     l.mu,
		fields: make([]field, len(l.fields), len(l.fields)+1),
	}
	copy(child.fields, l.fields)
	child.fields = append(child.fields, field{key, val})
	return child
}

// WithProgram returns a child logger tagged with the owning program's name.
func (l *Logger) WithProgram(name string) *Logger {
	return l.with("program", name)
}

// WithStateSet returns a child logger tagged with a state-set name.
func (l *Logger) WithStateSet(name string) *Logger {
	return l.with("ss", name)
}

// WithChannel returns a child logger tagged with a channel's variable name.
func (l *Logger) WithChannel(name string) *Logger {
	return l.with("chan", name)
}

// WithError returns a child logger that will include err's message on
// every subsequent call until replaced.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("err", err.Error())
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var result string
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			if result != "" {
				result += " "
			}
			result += fmt.Sprintf("%v=%v", args[i], args[i+1])
		}
	}
	if result != "" {
		return " " + result
	}
	return ""
}

func (l *Logger) log(level LogLevel, prefix, msg string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		rec := map[string]any{
			"time":  time.Now().Format(time.RFC3339Nano),
			"level": level.String(),
			"msg":   msg,
		}
		for _, f := range l.fields {
			rec[f.key] = f.val
		}
		for i := 0; i+1 < len(args); i += 2 {
			rec[fmt.Sprintf("%v", args[i])] = args[i+1]
		}
		enc, err := json.Marshal(rec)
		if err != nil {
			fmt.Fprintf(l.out, "%s %s%s\n", prefix, msg, formatArgs(args))
			return
		}
		fmt.Fprintln(l.out, string(enc))
		return
	}

	var ctx string
	for _, f := range l.fields {
		ctx += fmt.Sprintf(" %s=%v", f.key, f.val)
	}
	log.New(l.out, "", log.LstdFlags).Printf("%s %s%s%s", prefix, msg, ctx, formatArgs(args))
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, "[DEBUG]", msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, "[INFO]", msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, "[WARN]", msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, "[ERROR]", msg, args...) }

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, "[DEBUG]", fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, "[INFO]", fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, "[WARN]", fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, "[ERROR]", fmt.Sprintf(format, args...)) }

// Printf is kept for call sites that want stdlib-log-shaped logging.
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }

// Package-level convenience wrappers over Default().
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
