package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging interface used across the scraper. It is a thin
// facade over zerolog so components can be tested with a silent logger.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
}

type zlogger struct {
	logger zerolog.Logger
	fields map[string]interface{}
}

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error, disabled.
	Level string
	// File, when set, appends JSON logs to the given path in addition to
	// the console writer.
	File string
}

// New creates a Logger from the given options.
func New(opts Options) (Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = zerolog.MultiLevelWriter(output, f)
	}

	zl := zerolog.New(output).Level(level).With().
		Timestamp().
		Str("app", "dyscraper").
		Logger()

	return &zlogger{logger: zl, fields: map[string]interface{}{}}, nil
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() Logger {
	return &zlogger{logger: zerolog.Nop(), fields: map[string]interface{}{}}
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}

func (l *zlogger) Debug(msg string) { l.emit(l.logger.Debug(), msg) }
func (l *zlogger) Info(msg string)  { l.emit(l.logger.Info(), msg) }
func (l *zlogger) Warn(msg string)  { l.emit(l.logger.Warn(), msg) }
func (l *zlogger) Error(msg string) { l.emit(l.logger.Error(), msg) }

func (l *zlogger) emit(event *zerolog.Event, msg string) {
	for k, v := range l.fields {
		event = addField(event, k, v)
	}
	event.Msg(msg)
}

func (l *zlogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *zlogger) WithFields(fields map[string]interface{}) Logger {
	next := &zlogger{logger: l.logger, fields: make(map[string]interface{}, len(l.fields)+len(fields))}
	for k, v := range l.fields {
		next.fields[k] = v
	}
	for k, v := range fields {
		next.fields[k] = v
	}
	return next
}

func (l *zlogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func addField(event *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return event.Str(key, v)
	case int:
		return event.Int(key, v)
	case int64:
		return event.Int64(key, v)
	case bool:
		return event.Bool(key, v)
	case time.Duration:
		return event.Dur(key, v)
	case error:
		return event.Err(v)
	default:
		return event.Interface(key, v)
	}
}

var global Logger = Nop()

// Initialize sets up the global logger.
func Initialize(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	global = l
	return nil
}

// Get returns the global logger.
func Get() Logger {
	return global
}
