package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/relations/utils"
)

// ZapLogger implements Interface using zap
type ZapLogger struct {
	Logger                   *zap.Logger
	LogLevel                 LogLevel
	SlowThreshold            time.Duration
	Parameterized            bool
	IgnoreNoRowsMatchedError bool
}

// NewZapLogger creates a new logger using zap
func NewZapLogger(logger *zap.Logger, config Config) Interface {
	return &ZapLogger{
		Logger:                   logger,
		LogLevel:                 config.LogLevel,
		SlowThreshold:            config.SlowThreshold,
		Parameterized:            config.ParameterizedQueries,
		IgnoreNoRowsMatchedError: config.IgnoreNoRowsMatchedError,
	}
}

// NewZapProductionLogger creates a zap logger from zap's production config
func NewZapProductionLogger(config Config) (Interface, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(ZapLevel(config.LogLevel))

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(logger, config), nil
}

func (l *ZapLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *ZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.Logger.Info(msg, l.fields(zap.Any("data", data))...)
	}
}

func (l *ZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.Logger.Warn(msg, l.fields(zap.Any("data", data))...)
	}
}

func (l *ZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.Logger.Error(msg, l.fields(zap.Any("data", data))...)
	}
}

// Trace logs a fetch with its compiled SQL
func (l *ZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= Silent {
		return
	}

	elapsed := time.Since(begin)
	trace := func(extra ...zap.Field) []zap.Field {
		sql, rows := fc()
		fields := l.fields(zap.String("duration", durationString(elapsed)), zap.String("sql", sql))
		if rows != -1 {
			fields = append(fields, zap.Int64("rows", rows))
		}
		return append(fields, extra...)
	}

	switch {
	case err != nil && l.LogLevel >= Error && reportable(err, l.IgnoreNoRowsMatchedError):
		l.Logger.Error("fetch", trace(zap.Error(err))...)
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= Warn:
		l.Logger.Warn("SLOW fetch", trace(zap.Duration("slow_threshold", l.SlowThreshold))...)
	case l.LogLevel >= Info:
		l.Logger.Info("fetch", trace()...)
	}
}

func (l *ZapLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.Parameterized {
		return sql, nil
	}
	return sql, params
}

func (l *ZapLogger) fields(fields ...zap.Field) []zap.Field {
	return append([]zap.Field{zap.String("file", utils.FileWithLineNum())}, fields...)
}

// ZapLevel converts LogLevel to zapcore.Level
func ZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case Silent:
		return zapcore.FatalLevel
	case Error:
		return zapcore.ErrorLevel
	case Warn:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
