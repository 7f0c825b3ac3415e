package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = newLogger()

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	l, err := cfg.Build(zap.WithCaller(false))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func fieldsOf(m map[string]any) []zap.Field {
	fs := make([]zap.Field, 0, len(m))
	for k, v := range m {
		fs = append(fs, zap.Any(k, v))
	}
	return fs
}

func Info(msg string, fields map[string]any)  { log.Info(msg, fieldsOf(fields)...) }
func Warn(msg string, fields map[string]any)  { log.Warn(msg, fieldsOf(fields)...) }
func Error(msg string, fields map[string]any) { log.Error(msg, fieldsOf(fields)...) }
