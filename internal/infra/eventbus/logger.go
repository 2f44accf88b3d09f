package eventbus

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/samber/lo"
)

// KratosLoggerAdapter sends watermill logs to a kratos logger.
// Trace output is folded into debug.
type KratosLoggerAdapter struct {
	logger log.Logger
	fields watermill.LogFields
}

// NewKratosLoggerAdapter creates a new Watermill logger adapter.
func NewKratosLoggerAdapter(logger log.Logger) watermill.LoggerAdapter {
	return &KratosLoggerAdapter{
		logger: log.With(logger, "module", "watermill"),
		fields: watermill.LogFields{},
	}
}

func (l *KratosLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.log(log.LevelError, msg, err, fields)
}

func (l *KratosLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.log(log.LevelInfo, msg, nil, fields)
}

func (l *KratosLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.log(log.LevelDebug, msg, nil, fields)
}

func (l *KratosLoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.log(log.LevelDebug, msg, nil, fields)
}

func (l *KratosLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &KratosLoggerAdapter{
		logger: l.logger,
		fields: lo.Assign(l.fields, fields),
	}
}

func (l *KratosLoggerAdapter) log(level log.Level, msg string, err error, fields watermill.LogFields) {
	all := lo.Assign(l.fields, fields)
	keyvals := make([]interface{}, 0, len(all)*2+4)
	keyvals = append(keyvals, log.DefaultMessageKey, msg)
	for k, v := range all {
		keyvals = append(keyvals, k, v)
	}
	if err != nil {
		keyvals = append(keyvals, "error", err)
	}
	_ = l.logger.Log(level, keyvals...)
}
