// Package logging provides the kernel CLI's leveled log sink, mirroring
// the LogLevel/LogToFile/LogFilePath knobs of gloudx-ues's
// lexicon.MigrationConfig — error/warn/info/debug verbosity, optionally
// persisted to a rotating file instead of stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the logging verbosity, ordered least to most detailed.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

var levelRank = map[Level]int{
	LevelError: 0,
	LevelWarn:  1,
	LevelInfo:  2,
	LevelDebug: 3,
}

// Logger is a minimal leveled logger writing to stderr or, when
// configured, to a rotating log file.
type Logger struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
}

// Config selects the logger's verbosity and optional file sink.
type Config struct {
	Level     Level
	ToFile    bool
	FilePath  string
	MaxSizeMB int // lumberjack's rotation threshold; 0 uses lumberjack's default
}

// New builds a Logger per cfg. When ToFile is set, output is written
// through lumberjack for rotation instead of stderr; FilePath must be
// non-empty in that case.
func New(cfg Config) (*Logger, error) {
	level := cfg.Level
	if level == "" {
		level = LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.ToFile {
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("logging: log-to-file enabled but no log file path configured")
		}
		out = &lumberjack.Logger{
			Filename: cfg.FilePath,
			MaxSize:  cfg.MaxSizeMB,
			Compress: true,
		}
	}

	return &Logger{level: level, out: out}, nil
}

func (l *Logger) log(msgLevel Level, format string, args ...any) {
	if levelRank[msgLevel] > levelRank[l.level] {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] %s\n", msgLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
