package main

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger logs to stderr and, if cfg.LogFile is set, to a rotating file.
// The returned io.Closer must be closed to flush pending writes.
func newLogger(cfg Config) (*slog.Logger, io.Closer) {
	if cfg.LogFile == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), nopCloser{}
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: 3,
		MaxAge:     28,
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, lj), nil)
	return slog.New(handler), lj
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
