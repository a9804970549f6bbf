package logger

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gestorventas/deposito/internal/config"
)

// Module exposes a configured Zap logger to the Fx container.
var Module = fx.Provide(New)

// New builds the service logger and flushes it when the Fx app stops.
func New(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	logger, err := Build(cfg.Observability)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ignoreSyncOnTTY(logger.Sync())
		},
	})

	return logger, nil
}

// Build assembles a zap logger from observability settings. Logs go to
// stderr unless another output is configured, which keeps stdout free for
// CLI exports.
func Build(obs config.Observability) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(obs.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if obs.LogEncoding == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.Encoding = "json"
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
		zapCfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
		zapCfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	output := obs.LogOutput
	if output == "" {
		output = "stderr"
	}
	zapCfg.OutputPaths = []string{output}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(
		zap.String("service", obs.ServiceName),
		zap.String("environment", obs.Environment),
	), nil
}

// Syncing a terminal fails with EINVAL or ENOTTY on most platforms.
func ignoreSyncOnTTY(err error) error {
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
