// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/longscribe/backend/internal/config"
)

// Configure sets up the standard logrus logger with optional file rotation.
func Configure(cfg *config.Config) error {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(strings.ToLower(cfg.Logging.Level)); err == nil {
		logrus.SetLevel(lvl)
	}

	if cfg.Logging.Path == "" {
		logrus.SetOutput(os.Stderr)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Logging.Path), 0o755); err != nil {
		return err
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Logging.Path,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     30,
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return nil
}
