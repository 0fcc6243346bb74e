// xpilotlog/log.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package xpilotlog wraps log/slog with a rotating file sink, the way
// vice's pkg/log does for the ATC side of the house.
package xpilotlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	*slog.Logger
	LogFile string
	Start   time.Time
}

// New creates a Logger that writes JSON-formatted records to a rotating
// file under dir (or the user's config directory if dir is empty) at the
// named level ("debug", "info", "warn", "error").
func New(level string, dir string) *Logger {
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to find user config dir: %v\n", err)
			dir = "."
		}
		dir = filepath.Join(dir, "xpilotfsd")
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "xpilotfsd.slog"),
		MaxSize:    32, // MB
		MaxBackups: 3,
		MaxAge:     14,
	}

	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
		w.MaxSize = 256
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "":
		// leave at info
	default:
		fmt.Fprintf(os.Stderr, "%s: invalid log level, defaulting to info\n", level)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	l := &Logger{
		Logger:  slog.New(h),
		LogFile: w.Filename,
		Start:   time.Now(),
	}

	l.Info("starting xpilotfsd", slog.Time("start", l.Start),
		slog.String("goos", runtime.GOOS), slog.String("goarch", runtime.GOARCH))

	if bi, ok := debug.ReadBuildInfo(); ok {
		l.Debug("build info", slog.String("main", bi.Main.Path), slog.String("version", bi.Main.Version))
	}

	return l
}

// NewDiscard returns a Logger that drops everything; useful for tests and
// for hosts that want to supply their own slog.Handler instead.
func NewDiscard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1})),
		Start:  time.Now(),
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
