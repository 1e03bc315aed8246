package infrastructure

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// NewLogger builds the process logger. Production output is JSON with
// ISO8601 timestamps; development switches to the console encoder.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	logger, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return logger, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// waZapLogger routes whatsmeow's printf-style logging into zap
type waZapLogger struct {
	s *zap.SugaredLogger
}

// NewWhatsAppLogger adapts a zap logger to the whatsmeow logging interface
func NewWhatsAppLogger(logger *zap.Logger, module string) waLog.Logger {
	return waZapLogger{s: logger.Named(module).Sugar()}
}

func (l waZapLogger) Errorf(msg string, args ...interface{}) { l.s.Errorf(msg, args...) }
func (l waZapLogger) Warnf(msg string, args ...interface{})  { l.s.Warnf(msg, args...) }
func (l waZapLogger) Infof(msg string, args ...interface{})  { l.s.Infof(msg, args...) }
func (l waZapLogger) Debugf(msg string, args ...interface{}) { l.s.Debugf(msg, args...) }

func (l waZapLogger) Sub(module string) waLog.Logger {
	return waZapLogger{s: l.s.Named(module)}
}
