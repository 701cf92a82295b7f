package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
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

// ParseLevel maps a settings-file level name to a Level. Unknown names
// fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Entry is a single log record handed to the formatter.
type Entry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
	Err       error
	Fields    map[string]interface{}
}

// Formatter renders an entry to a line of output.
type Formatter interface {
	Format(e *Entry) string
}

// TextFormatter renders entries as pipe-separated human-readable text.
type TextFormatter struct{}

func (TextFormatter) Format(e *Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %-5s | %s | %s",
		e.Time.Format("2006-01-02 15:04:05.000"), e.Level, e.Component, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, " | error=%v", e.Err)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
		}
	}
	b.WriteByte('\n')
	return b.String()
}

// Logger is a leveled logger scoped to one component.
type Logger struct {
	component string
	minLevel  Level
	out       io.Writer
	formatter Formatter
	fields    map[string]interface{}
	mu        *sync.Mutex
}

// New creates a logger for component writing to stdout at INFO.
func New(component string) *Logger {
	return &Logger{
		component: component,
		minLevel:  LevelInfo,
		out:       os.Stdout,
		formatter: TextFormatter{},
		mu:        &sync.Mutex{},
	}
}

// SetMinLevel sets the minimum level that will be written.
func (l *Logger) SetMinLevel(level Level) *Logger {
	l.minLevel = level
	return l
}

// SetOutput redirects log output.
func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.out = w
	return l
}

// With returns a child logger carrying an extra field on every entry.
// The child shares the parent's output and lock.
func (l *Logger) With(key string, value interface{}) *Logger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	child := *l
	child.fields = fields
	return &child
}

func (l *Logger) log(level Level, err error, format string, args ...interface{}) {
	if level < l.minLevel {
		return
	}
	entry := &Entry{
		Time:      time.Now(),
		Level:     level,
		Component: l.component,
		Message:   fmt.Sprintf(format, args...),
		Err:       err,
		Fields:    l.fields,
	}
	line := l.formatter.Format(entry)
	l.mu.Lock()
	l.out.Write([]byte(line))
	l.mu.Unlock()
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, nil, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, nil, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, nil, format, args...)
}

func (l *Logger) Errorf(err error, format string, args ...interface{}) {
	l.log(LevelError, err, format, args...)
}
