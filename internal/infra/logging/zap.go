// Package logging backs the kratos logger with zap.
package logging

import (
	"fmt"

	"clickpipe/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ log.Logger = (*ZapLogger)(nil)

// ZapLogger is a kratos log.Logger writing through zap. The value under
// log.DefaultMessageKey becomes the zap message; other pairs become fields.
type ZapLogger struct {
	log    *zap.Logger
	msgKey string
}

// NewZapLogger wraps l.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{
		log:    l,
		msgKey: log.DefaultMessageKey,
	}
}

// New builds a zap logger from c. The caller owns Sync.
func New(c *conf.Log) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c != nil && c.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	// kratos adds its own caller and timestamp pairs.
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = ""

	if c != nil && c.Level != "" {
		level, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	return cfg.Build()
}

func (l *ZapLogger) Log(level log.Level, keyvals ...interface{}) error {
	if len(keyvals) == 0 {
		return nil
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "KEYVALS UNPAIRED")
	}

	var msg string
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if key == l.msgKey {
			msg = fmt.Sprint(keyvals[i+1])
			continue
		}
		if err, ok := keyvals[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}

	switch level {
	case log.LevelDebug:
		l.log.Debug(msg, fields...)
	case log.LevelWarn:
		l.log.Warn(msg, fields...)
	case log.LevelError, log.LevelFatal:
		// Fatal is logged as error so the kratos helper decides about exiting.
		l.log.Error(msg, fields...)
	default:
		l.log.Info(msg, fields...)
	}
	return nil
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.log.Sync()
}
