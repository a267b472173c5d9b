package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/config"
)

// Init 初始化全局日志
func Init(cfg config.LogConfig) error {
	return InitWithWriter(cfg, os.Stdout)
}

// InitWithWriter 初始化全局日志并写入指定 writer
func InitWithWriter(cfg config.LogConfig, out io.Writer) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var w io.Writer
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "json":
		w = out
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(level)
	return nil
}

// LogPanic 记录 panic 及堆栈
func LogPanic(r any) {
	log.Error().Str("stack", string(debug.Stack())).Msgf("💥 panic: %v", r)
}
