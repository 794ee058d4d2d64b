// Package logger is a minimal leveled logger.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/refaktor/hostbridge/textutils"
)

type Level int

const (
	DEBUG Level = -1
	INFO  Level = 0
	WARN  Level = 1
	ERROR Level = 2
	FATAL Level = 99
)

// ParseLevel parses a level name as written in config files.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return 0, fmt.Errorf("invalid log level %q", s)
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		panic(fmt.Sprintf("invalid log level: %d", int(l)))
	}
}

func (l Level) color() string {
	switch l {
	case DEBUG:
		return "\x1b[90m"
	case WARN:
		return "\x1b[33m"
	case ERROR, FATAL:
		return "\x1b[31m"
	default:
		return "\x1b[36m"
	}
}

type Logger struct {
	Writer   io.Writer
	Prefix   string
	MinLevel Level
	// Colorize level labels. Set by [New] if Writer is a terminal.
	Color bool

	mu sync.Mutex
}

// New returns a logger writing to w, with colors enabled if w is a
// terminal.
func New(w io.Writer, prefix string, minLevel Level) *Logger {
	l := &Logger{
		Writer:   w,
		Prefix:   prefix,
		MinLevel: minLevel,
	}
	if f, ok := w.(*os.File); ok {
		l.Color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return l
}

// Enabled reports whether messages of level would be written. A nil
// logger is never enabled.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && l.Writer != nil && level >= l.MinLevel
}

func (l *Logger) Log(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	var b bytes.Buffer
	if l.Prefix != "" {
		b.WriteString(l.Prefix)
		b.WriteString(" ")
	}
	if l.Color {
		b.WriteString(level.color())
		b.WriteString(level.String())
		b.WriteString("\x1b[0m")
	} else {
		b.WriteString(level.String())
	}
	b.WriteString(":")
	s := fmt.Sprintf(format, args...)
	if strings.Contains(s, "\n") {
		b.WriteString("\n")
		s = textutils.IndentString(s, "  ", 1)
	} else {
		b.WriteString(" ")
	}
	b.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		b.WriteString("\n")
	}
	l.mu.Lock()
	// Nothing sensible to do if logging itself fails.
	_, _ = io.Copy(l.Writer, &b)
	l.mu.Unlock()
	if level == FATAL {
		os.Exit(1)
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.Log(DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.Log(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.Log(WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.Log(ERROR, format, args...) }
