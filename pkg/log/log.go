// Package log provides structured logging for plantreco on top of zerolog.
//
// Two styles are supported. Entry points and HTTP handlers use the global
// zerolog logger directly:
//
//	log.SetupLogger("info")
//	log.GetLogger().Info().Str("path", p).Msg("artifact loaded")
//
// Estimators and pipeline components hold a Logger, a small key/value
// interface that keeps them independent from the concrete logger:
//
//	logger := log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "RandomForestClassifier")
//	logger.Info("Training started", log.SamplesKey, n, log.FeaturesKey, p)
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Standard field keys.
const (
	OperationKey  = "operation"
	PhaseKey      = "phase"
	SamplesKey    = "samples"
	FeaturesKey   = "features"
	ClassesKey    = "classes"
	DurationMsKey = "duration_ms"
	ModelNameKey  = "model_name"
	ComponentKey  = "component"
	PathKey       = "path"
	PredsKey      = "predictions"
	ScoreKey      = "score"
)

// Standard operation and phase values.
const (
	OperationFit       = "fit"
	OperationTransform = "transform"
	OperationPredict   = "predict"
	OperationSave      = "save"
	OperationLoad      = "load"

	PhaseCleaning  = "cleaning"
	PhaseTraining  = "training"
	PhaseInference = "inference"
	PhaseServing   = "serving"
)

// FailureMarker prefixes the message logged when an offline run aborts.
const FailureMarker = "❌ Erreur"

// Logger is the key/value logging interface used by library code.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	With(kv ...interface{}) Logger
}

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
}

var (
	mu     sync.RWMutex
	global = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
)

// ToLogLevel parses a level name, falling back to info.
func ToLogLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetupLogger configures the global logger with a human readable console output.
func SetupLogger(level string) {
	SetupLoggerWithFormat(level, "console", os.Stderr)
}

// SetupLoggerWithFormat configures the global logger. format is "json" or "console".
func SetupLoggerWithFormat(level, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	defer mu.Unlock()
	zerolog.SetGlobalLevel(ToLogLevel(level))
	global = zerolog.New(w).With().Timestamp().Logger()
}

// GetLogger returns the global zerolog logger.
func GetLogger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := global
	return &l
}

// GetLoggerWithName returns a Logger tagged with the given component name.
func GetLoggerWithName(name string) Logger {
	return &zerologLogger{zl: GetLogger().With().Str(ComponentKey, name).Logger()}
}

// LogError logs err with its stack trace detail at error level.
func LogError(err error, msg string) {
	if err == nil {
		return
	}
	GetLogger().Error().
		Err(err).
		Str("detail", fmt.Sprintf("%+v", err)).
		Msg(msg)
}

// Failure logs err with the offline-run failure marker.
func Failure(err error) {
	LogError(err, FailureMarker)
}

type zerologProvider struct {
	level zerolog.Level
}

// NewZerologProvider creates a provider whose loggers emit at level or above.
func NewZerologProvider(level zerolog.Level) LoggerProvider {
	return &zerologProvider{level: level}
}

func (p *zerologProvider) GetLogger() Logger {
	return &zerologLogger{zl: GetLogger().Level(p.level)}
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{zl: GetLogger().Level(p.level).With().Str(ComponentKey, name).Logger()}
}

type zerologLogger struct {
	zl zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, kv ...interface{}) { l.emit(l.zl.Debug(), msg, kv) }
func (l *zerologLogger) Info(msg string, kv ...interface{})  { l.emit(l.zl.Info(), msg, kv) }
func (l *zerologLogger) Warn(msg string, kv ...interface{})  { l.emit(l.zl.Warn(), msg, kv) }
func (l *zerologLogger) Error(msg string, kv ...interface{}) { l.emit(l.zl.Error(), msg, kv) }

func (l *zerologLogger) With(kv ...interface{}) Logger {
	if len(kv) == 0 {
		return l
	}
	return &zerologLogger{zl: l.zl.With().Fields(kv).Logger()}
}

func (l *zerologLogger) emit(ev *zerolog.Event, msg string, kv []interface{}) {
	if len(kv) > 0 {
		ev = ev.Fields(kv)
	}
	ev.Msg(msg)
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologLogger{zl: zerolog.Nop()}
}
