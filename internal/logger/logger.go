package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config logger configuration
type Config struct {
	LogDir     string // Log directory, empty disables file output
	Level      string // debug | info | warn | error
	MaxDays    int    // Max days to keep logs
	ConsoleOut bool   // Mirror to stderr as well
}

// Logger is a zap logger writing to a daily rotated file
type Logger struct {
	*zap.Logger
	file *dailyFile
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the default logger
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		defaultLogger, err = NewLogger(cfg)
	})
	return err
}

// NewLogger creates a new logger instance
func NewLogger(cfg Config) (*Logger, error) {
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 7
	}

	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = zapcore.InfoLevel
	}

	var cores []zapcore.Core
	l := &Logger{}

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		l.file = &dailyFile{dir: cfg.LogDir, maxDays: cfg.MaxDays}
		if err := l.file.rotateIfNeeded(); err != nil {
			return nil, err
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), l.file, level))
	}

	// stdout may carry a protocol stream (MCP stdio), console output goes to stderr
	if cfg.ConsoleOut {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level))
	}

	if len(cores) == 0 {
		l.Logger = zap.NewNop()
		return l, nil
	}

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return l, nil
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// dailyFile is a zapcore.WriteSyncer that switches files at midnight
type dailyFile struct {
	mu          sync.Mutex
	dir         string
	maxDays     int
	currentFile *os.File
	currentDate string
}

func (f *dailyFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.rotateIfNeeded(); err != nil {
		return 0, err
	}
	return f.currentFile.Write(p)
}

func (f *dailyFile) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.currentFile == nil {
		return nil
	}
	return f.currentFile.Sync()
}

func (f *dailyFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.currentFile == nil {
		return nil
	}
	err := f.currentFile.Close()
	f.currentFile = nil
	return err
}

// rotateIfNeeded must be called with mu held (or before the file is shared)
func (f *dailyFile) rotateIfNeeded() error {
	today := time.Now().Format("2006-01-02")
	if f.currentDate == today && f.currentFile != nil {
		return nil
	}

	if f.currentFile != nil {
		f.currentFile.Close()
	}

	filename := filepath.Join(f.dir, fmt.Sprintf("pokemate-%s.log", today))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	f.currentFile = file
	f.currentDate = today

	go cleanOldLogs(f.dir, f.maxDays)

	return nil
}

// cleanOldLogs removes log files beyond the newest maxDays
func cleanOldLogs(dir string, maxDays int) {
	files, err := filepath.Glob(filepath.Join(dir, "pokemate-*.log"))
	if err != nil || len(files) <= maxDays {
		return
	}

	// names sort by date
	sort.Strings(files)
	for i := 0; i < len(files)-maxDays; i++ {
		os.Remove(files[i])
	}
}

// L returns the default zap logger, or a no-op logger before Init
func L() *zap.Logger {
	if defaultLogger == nil {
		return zap.NewNop()
	}
	return defaultLogger.Logger
}

// Debug logs a debug message using the default logger
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Info logs an info message using the default logger
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn logs a warning message using the default logger
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error logs an error message using the default logger
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Close closes the default logger
func Close() error {
	if defaultLogger != nil {
		return defaultLogger.Close()
	}
	return nil
}
