package main

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rpggio/studyevents/internal/config"
)

// newLogFile returns a size-rotated log file for cfg.Path.
func newLogFile(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
		Compress:   cfg.Compress,
	}
}

// logOutput tees console output into the rotating file when one is
// configured. The returned closer is nil otherwise.
func logOutput(console io.Writer, cfg config.LogConfig) (io.Writer, io.Closer) {
	if cfg.Path == "" {
		return console, nil
	}
	file := newLogFile(cfg)
	return io.MultiWriter(console, file), file
}
