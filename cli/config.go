package cli

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/relations"
	"gorm.io/relations/dialects"
	"gorm.io/relations/logger"
)

// Config command configuration, read from flags, RELATIONS_ environment variables and
// the config file in that order
type Config struct {
	Catalog       string
	Query         string
	Dialect       string
	DSN           string
	LogLevel      string
	LogFormat     string
	SlowThreshold time.Duration
	PrepareStmt   bool
}

func loadConfig(v *viper.Viper) (*Config, error) {
	config := &Config{
		Catalog:       v.GetString("catalog"),
		Query:         v.GetString("query"),
		Dialect:       strings.ToLower(v.GetString("dialect")),
		DSN:           v.GetString("dsn"),
		LogLevel:      v.GetString("log_level"),
		LogFormat:     strings.ToLower(v.GetString("log_format")),
		SlowThreshold: v.GetDuration("slow_threshold"),
		PrepareStmt:   v.GetBool("prepare_stmt"),
	}

	if config.Catalog == "" {
		return nil, fmt.Errorf("catalog file required, set --catalog or RELATIONS_CATALOG")
	}
	if config.DSN == "" {
		return nil, fmt.Errorf("dsn required, set --dsn or RELATIONS_DSN")
	}
	return config, nil
}

// openDB opens the configured database, logs are written to w
func (config *Config) openDB(w io.Writer) (*relations.DB, error) {
	dialector, err := dialects.Open(config.Dialect, config.DSN)
	if err != nil {
		return nil, err
	}

	l, err := config.logger(w)
	if err != nil {
		return nil, err
	}

	return relations.Open(dialector, &relations.Config{
		Logger:         l,
		PrepareStmt:    config.PrepareStmt,
		TranslateError: true,
	})
}

func (config *Config) logger(w io.Writer) (logger.Interface, error) {
	level, err := parseLogLevel(config.LogLevel)
	if err != nil {
		return nil, err
	}

	loggerConfig := logger.Config{
		SlowThreshold: config.SlowThreshold,
		LogLevel:      level,
	}

	switch config.LogFormat {
	case "", "text":
		return logger.New(log.New(w, "\r\n", log.LstdFlags), loggerConfig), nil
	case "zerolog":
		return logger.NewZerologLogger(zerolog.New(w).Level(logger.ZerologLevel(level)).With().Timestamp().Logger(), loggerConfig), nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.JSONFormatter{})
		return logger.NewLogrusLogger(l, loggerConfig), nil
	case "zap":
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(w), logger.ZapLevel(level))
		return logger.NewZapLogger(zap.New(core), loggerConfig), nil
	case "slog":
		return logger.NewSlogLogger(slog.New(slog.NewJSONHandler(w, nil)), loggerConfig), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", config.LogFormat)
	}
}

func parseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent, nil
	case "error":
		return logger.Error, nil
	case "", "warn", "warning":
		return logger.Warn, nil
	case "info":
		return logger.Info, nil
	}
	return 0, fmt.Errorf("unsupported log level: %s", level)
}
