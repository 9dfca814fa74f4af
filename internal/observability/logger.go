package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger bundles a zap logger with the level that controls it.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel
}

// NewLogger builds a structured logger for the environment. Production
// emits sampled JSON, everything else colored console output.
func NewLogger(environment, level string) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	atomic := zap.NewAtomicLevelAt(ParseLevel(level, config.Level.Level()))
	config.Level = atomic
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: logger, Level: atomic}, nil
}

// SetLevel changes verbosity at runtime. Unknown names are ignored.
func (l *Logger) SetLevel(level string) {
	next := ParseLevel(level, l.Level.Level())
	if next != l.Level.Level() {
		l.Level.SetLevel(next)
		l.Info("Log level changed", zap.String("level", next.String()))
	}
}

// ParseLevel parses a level name, returning fallback when it is invalid.
func ParseLevel(level string, fallback zapcore.Level) zapcore.Level {
	if level == "" {
		return fallback
	}
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return fallback
	}
	return parsed
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
