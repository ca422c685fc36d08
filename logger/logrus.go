package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/relations/utils"
)

// LogrusLogger implements Interface using logrus
type LogrusLogger struct {
	Logger                   *logrus.Logger
	LogLevel                 LogLevel
	SlowThreshold            time.Duration
	Parameterized            bool
	IgnoreNoRowsMatchedError bool
}

// NewLogrusLogger creates a new logger using logrus
func NewLogrusLogger(logger *logrus.Logger, config Config) Interface {
	return &LogrusLogger{
		Logger:                   logger,
		LogLevel:                 config.LogLevel,
		SlowThreshold:            config.SlowThreshold,
		Parameterized:            config.ParameterizedQueries,
		IgnoreNoRowsMatchedError: config.IgnoreNoRowsMatchedError,
	}
}

func (l *LogrusLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.entry(ctx, logrus.Fields{"data": data}).Info(msg)
	}
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.entry(ctx, logrus.Fields{"data": data}).Warn(msg)
	}
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.entry(ctx, logrus.Fields{"data": data}).Error(msg)
	}
}

// Trace logs a fetch with its compiled SQL
func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= Silent {
		return
	}

	elapsed := time.Since(begin)
	fields := logrus.Fields{"duration": durationString(elapsed)}

	switch {
	case err != nil && l.LogLevel >= Error && reportable(err, l.IgnoreNoRowsMatchedError):
		l.traceFields(fields, fc)
		fields["error"] = err.Error()
		l.entry(ctx, fields).Error("fetch")
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= Warn:
		l.traceFields(fields, fc)
		fields["slow_threshold"] = l.SlowThreshold.String()
		l.entry(ctx, fields).Warn("SLOW fetch")
	case l.LogLevel >= Info:
		l.traceFields(fields, fc)
		l.entry(ctx, fields).Info("fetch")
	}
}

func (l *LogrusLogger) traceFields(fields logrus.Fields, fc func() (string, int64)) {
	sql, rows := fc()
	fields["sql"] = sql
	if rows != -1 {
		fields["rows"] = rows
	}
}

func (l *LogrusLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.Parameterized {
		return sql, nil
	}
	return sql, params
}

func (l *LogrusLogger) entry(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	fields["file"] = utils.FileWithLineNum()
	entry := l.Logger.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}
