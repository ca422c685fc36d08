package logger

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/relations/utils"
)

type slogLogger struct {
	Logger                   *slog.Logger
	LogLevel                 LogLevel
	SlowThreshold            time.Duration
	Parameterized            bool
	IgnoreNoRowsMatchedError bool
}

// NewSlogLogger creates a new logger using log/slog
func NewSlogLogger(logger *slog.Logger, config Config) Interface {
	return &slogLogger{
		Logger:                   logger,
		LogLevel:                 config.LogLevel,
		SlowThreshold:            config.SlowThreshold,
		Parameterized:            config.ParameterizedQueries,
		IgnoreNoRowsMatchedError: config.IgnoreNoRowsMatchedError,
	}
}

func (l *slogLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *slogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.log(ctx, slog.LevelInfo, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.log(ctx, slog.LevelWarn, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.log(ctx, slog.LevelError, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= Silent {
		return
	}

	elapsed := time.Since(begin)
	trace := func(extra ...slog.Attr) slog.Attr {
		sql, rows := fc()
		attrs := []slog.Attr{slog.String("duration", durationString(elapsed)), slog.String("sql", sql)}
		if rows != -1 {
			attrs = append(attrs, slog.Int64("rows", rows))
		}
		return slog.Attr{Key: "trace", Value: slog.GroupValue(append(attrs, extra...)...)}
	}

	switch {
	case err != nil && l.LogLevel >= Error && reportable(err, l.IgnoreNoRowsMatchedError):
		l.log(ctx, slog.LevelError, "fetch", trace(slog.String("error", err.Error())))
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= Warn:
		l.log(ctx, slog.LevelWarn, "SLOW fetch", trace(slog.String("slow_threshold", l.SlowThreshold.String())))
	case l.LogLevel >= Info:
		l.log(ctx, slog.LevelInfo, "fetch", trace())
	}
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !l.Logger.Enabled(ctx, level) {
		return
	}

	r := slog.NewRecord(time.Now(), level, msg, utils.CallerFrame().PC)
	r.Add(args...)
	_ = l.Logger.Handler().Handle(ctx, r)
}

func (l *slogLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.Parameterized {
		return sql, nil
	}
	return sql, params
}
