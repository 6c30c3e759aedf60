package slog

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is the minimum severity a Logger writes.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

const separator = " - "

var levelNames = []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (lv Level) String() string {
	if lv < LevelDebug || lv > LevelFatal {
		return fmt.Sprintf("Level(%d)", int32(lv))
	}
	return levelNames[lv]
}

// ParseLevel accepts one of DEBUG, INFO, WARN, ERROR or FATAL in any case.
func ParseLevel(verbosity string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(name, verbosity) {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("incorrect log level %q, expected one of [%s]",
		verbosity, strings.Join(levelNames, "|"))
}

type Logger struct {
	logLevel atomic.Int32
	colorOn  bool
	logger   *log.Logger
}

func NewLogger(prefix string) *Logger {
	if prefix != "" && !strings.HasSuffix(prefix, " ") {
		prefix += " "
	}
	l := &Logger{
		logger: log.New(os.Stdout, prefix, log.LstdFlags|log.Lmsgprefix),
	}
	l.logLevel.Store(int32(LevelInfo))
	return l
}

func (l *Logger) WithColors(enabled bool) {
	l.colorOn = enabled
}

func (l *Logger) WithOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

func (l *Logger) Level() Level {
	return Level(l.logLevel.Load())
}

func (l *Logger) SetLevel(verbosity string) error {
	lv, err := ParseLevel(verbosity)
	if err != nil {
		return err
	}
	l.logLevel.Store(int32(lv))
	return nil
}

func (l *Logger) output(lv Level, t string, args ...interface{}) {
	if lv >= l.Level() {
		l.logger.Printf(l.tag(lv)+t, args...)
	}
}

func (l *Logger) Debugf(t string, args ...interface{}) {
	l.output(LevelDebug, t, args...)
}

func (l *Logger) Infof(t string, args ...interface{}) {
	l.output(LevelInfo, t, args...)
}

func (l *Logger) Warnf(t string, args ...interface{}) {
	l.output(LevelWarn, t, args...)
}

func (l *Logger) Errorf(t string, args ...interface{}) {
	l.output(LevelError, t, args...)
}
