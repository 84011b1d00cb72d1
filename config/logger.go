package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConfigureLogging sets up the global logrus logger: colored text on stdout
// and, when LogFilePath is set, a rotated plain-text file.
func ConfigureLogging(cfg *Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)

	if cfg.LogFilePath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	log.AddHook(newFileHook(cfg))
	return nil
}

func newFileHook(cfg *Config) *lfshook.LfsHook {
	writer := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    100,
		MaxBackups: 30,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}

	writers := lfshook.WriterMap{}
	for _, level := range log.AllLevels {
		writers[level] = writer
	}
	return lfshook.NewHook(writers, &log.TextFormatter{DisableColors: true, FullTimestamp: true})
}
