package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLevel orders log severities.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	FATAL
)

// Logger writes timestamped entries to a log file and, when console output is
// enabled, mirrors them to stderr. It is safe for concurrent use and is passed
// into components as a dependency; nothing in the module logs through globals.
type Logger struct {
	filename string
	file     *os.File
	console  bool
	minLevel LogLevel
	mu       sync.Mutex
}

// NewLogger opens (or creates) the log file at filename. Console mirroring is
// on by default.
func NewLogger(filename string) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", filename, err)
	}

	return &Logger{
		filename: filename,
		file:     file,
		console:  true,
		minLevel: INFO,
	}, nil
}

// SetConsole toggles mirroring of entries to stderr.
func (l *Logger) SetConsole(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = on
}

// SetLevel drops entries below level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Log writes one entry: [time] LEVEL: message.
func (l *Logger) Log(level LogLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minLevel {
		return
	}

	entry := fmt.Sprintf("[%s] %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		level.String(),
		message)

	if l.file != nil {
		l.file.WriteString(entry)
	}
	if l.console {
		os.Stderr.WriteString(entry)
	}
}

// CheckRotate rotates the log file once it exceeds maxSizeExpr, a config
// expression of the form "10 * 1024 * 1024".
func (l *Logger) CheckRotate(maxSizeExpr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() <= eval(maxSizeExpr) {
		return nil
	}
	return l.rotate()
}

func (l *Logger) rotate() error {
	l.file.Close()
	rotated := fmt.Sprintf("%s.%s", l.filename, time.Now().Format("20060102150405"))
	if err := os.Rename(l.filename, rotated); err != nil {
		return fmt.Errorf("rename log file: %w", err)
	}

	file, err := os.OpenFile(l.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("reopen log file: %w", err)
	}
	l.file = file
	return nil
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// defaultMaxLogSize is used when a size expression does not parse, so a bad
// config value never makes every CheckRotate call rotate.
const defaultMaxLogSize = 10 * 1024 * 1024

// eval multiplies out a "a * b * c" size expression.
func eval(expr string) int64 {
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || num <= 0 {
			return defaultMaxLogSize
		}
		result *= int64(num)
	}
	return result
}

func (l *Logger) Debug(msg string)   { l.Log(DEBUG, msg) }
func (l *Logger) Info(msg string)    { l.Log(INFO, msg) }
func (l *Logger) Warning(msg string) { l.Log(WARNING, msg) }
func (l *Logger) Error(msg string)   { l.Log(ERROR, msg) }
func (l *Logger) Fatal(msg string)   { l.Log(FATAL, msg) }
