// Package logging builds the process logger and hands it to the library
// packages.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/diagchan/channel"
	"github.com/wippyai/diagchan/errors"
	"github.com/wippyai/diagchan/guest"
	"github.com/wippyai/diagchan/internal/config"
	"github.com/wippyai/diagchan/script"
)

// New builds a zap logger from cfg. The json format uses zap's production
// encoder, console the development one.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}

	var zc zap.Config
	switch cfg.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "console", "":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("unknown log format %q", cfg.Format).
			Build()
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInstantiation, err, "build logger")
	}
	return logger, nil
}

// Install makes l the logger of every library package, each under its own
// name.
func Install(l *zap.Logger) {
	channel.SetLogger(l.Named("channel"))
	script.SetLogger(l.Named("script"))
	guest.SetLogger(l.Named("guest"))
}
