// Package dmlog provides the leveled, named loggers used throughout
// bring-up. Log sinks themselves are an external collaborator (see
// spec §1); this package only shapes how the core talks to one.
package dmlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled, named logging interface the core depends on.
// Every stage of bring-up (binder, scanner, probe engine, root
// lifecycle) takes one of these rather than reaching for a package
// global, so a caller can scope logs per device or per uclass with
// Named/With.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Named(name string) Logger
	With(args ...interface{}) Logger
}

type zapLogger struct {
	*zap.SugaredLogger
}

func (z zapLogger) Named(name string) Logger {
	return zapLogger{z.SugaredLogger.Named(name)}
}

func (z zapLogger) With(args ...interface{}) Logger {
	return zapLogger{z.SugaredLogger.With(args...)}
}

// New returns a Logger named "dm" that writes Info+ to stdout.
func New() Logger {
	return NewNamed("dm")
}

// NewNamed returns a Logger with the given root name, writing Info+ to
// stdout in the teacher's console encoding.
func NewNamed(name string) Logger {
	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	logger := zap.Must(cfg.Build()).Sugar().Named(name)
	return zapLogger{logger}
}

// NewTest returns a Logger suitable for use in tests: Debug+ to stdout.
func NewTest() Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	logger := zap.Must(cfg.Build()).Sugar().Named("dm-test")
	return zapLogger{logger}
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return zapLogger{zap.NewNop().Sugar()}
}
