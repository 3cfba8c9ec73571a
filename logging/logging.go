package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
)

// Logger wraps the standard log package with file output and rotation
type Logger struct {
	logger     *log.Logger
	fileWriter io.Writer
	level      LogLevel
}

// sessionLumberjackWriter writes to one log file per trading session (day)
// and lets lumberjack handle size-based rotation within the day.
type sessionLumberjackWriter struct {
	baseDir  string
	baseName string
	ext      string

	maxSize    int
	maxBackups int
	maxAge     int
	compress   bool

	mu         sync.Mutex
	currentDay string
	currentLog *lumberjack.Logger
}

func newSessionLumberjackWriter(basePath string, maxSize, maxBackups, maxAge int, compress bool) (*sessionLumberjackWriter, error) {
	baseDir := filepath.Dir(basePath)
	base := filepath.Base(basePath)
	ext := filepath.Ext(base)
	baseName := strings.TrimSuffix(base, ext)
	if baseName == "" {
		return nil, fmt.Errorf("invalid log file: %q", basePath)
	}
	if ext == "" {
		ext = ".log"
	}

	w := &sessionLumberjackWriter{
		baseDir:    baseDir,
		baseName:   baseName,
		ext:        ext,
		maxSize:    maxSize,
		maxBackups: maxBackups,
		maxAge:     maxAge,
		compress:   compress,
	}

	if err := w.ensure(time.Now()); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *sessionLumberjackWriter) sessionPath(now time.Time) string {
	filename := fmt.Sprintf("%s-%s%s", w.baseName, now.Format("2006-01-02"), w.ext)
	return filepath.Join(w.baseDir, filename)
}

func (w *sessionLumberjackWriter) ensure(now time.Time) error {
	day := now.Format("2006-01-02")
	if w.currentLog != nil && w.currentDay == day {
		return nil
	}

	if w.currentLog != nil {
		_ = w.currentLog.Close()
		w.currentLog = nil
	}

	path := w.sessionPath(now)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	w.currentDay = day
	w.currentLog = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    w.maxSize,
		MaxBackups: w.maxBackups,
		MaxAge:     w.maxAge,
		Compress:   w.compress,
	}

	if w.maxAge > 0 {
		if err := w.pruneOldSessions(now); err != nil {
			return err
		}
	}
	return nil
}

func (w *sessionLumberjackWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensure(time.Now()); err != nil {
		return 0, err
	}
	return w.currentLog.Write(p)
}

func (w *sessionLumberjackWriter) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensure(time.Now()); err != nil {
		return err
	}
	return w.currentLog.Rotate()
}

func (w *sessionLumberjackWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentLog == nil {
		return nil
	}
	err := w.currentLog.Close()
	w.currentLog = nil
	w.currentDay = ""
	return err
}

// pruneOldSessions removes session files older than maxAge days.
func (w *sessionLumberjackWriter) pruneOldSessions(now time.Time) error {
	y, m, d := now.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(w.maxAge - 1))

	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read log directory %q: %w", w.baseDir, err)
	}

	prefix := w.baseName + "-"
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, w.ext) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), w.ext)
		day, err := time.ParseInLocation("2006-01-02", stamp, now.Location())
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			_ = os.Remove(filepath.Join(w.baseDir, name))
		}
	}
	return nil
}

// LoggerInterface defines the interface for logging methods
type LoggerInterface interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warning(format string, v ...interface{})
	Error(format string, v ...interface{})
	Fatal(format string, v ...interface{})
	Sync() error
	ChangeLogLevel(level LogLevel)
}

// NewLogger creates a new logger instance with file output and rotation
func NewLogger(logFile string, maxSize, maxBackups, maxAge int, compress bool, level LogLevel) (*Logger, error) {
	fileWriter, err := newSessionLumberjackWriter(logFile, maxSize, maxBackups, maxAge, compress)
	if err != nil {
		return nil, err
	}

	// Log to both file and stdout
	multiWriter := io.MultiWriter(fileWriter, os.Stdout)

	logger := log.New(multiWriter, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)

	return &Logger{
		logger:     logger,
		fileWriter: fileWriter,
		level:      level,
	}, nil
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.level <= DEBUG {
		l.logger.Output(2, fmt.Sprintf("[DEBUG] "+format, v...))
	}
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	if l.level <= INFO {
		l.logger.Output(2, fmt.Sprintf("[INFO]  "+format, v...))
	}
}

// Warning logs a warning message
func (l *Logger) Warning(format string, v ...interface{}) {
	if l.level <= WARNING {
		l.logger.Output(2, fmt.Sprintf("[WARN]  "+format, v...))
	}
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	if l.level <= ERROR {
		l.logger.Output(2, fmt.Sprintf("[ERROR] "+format, v...))
	}
}

// Fatal logs an error message and exits
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.logger.Output(2, fmt.Sprintf("[FATAL] "+format, v...))
	os.Exit(1)
}

// Sync flushes any buffered log entries to the underlying writer
func (l *Logger) Sync() error {
	type rotator interface {
		Rotate() error
	}
	if r, ok := l.fileWriter.(rotator); ok {
		return r.Rotate()
	}
	return nil
}

// ChangeLogLevel changes the logging level at runtime
func (l *Logger) ChangeLogLevel(level LogLevel) {
	l.level = level
}
