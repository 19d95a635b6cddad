// Package logging はslogのデフォルトロガーを設定します。
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Config はロガーの設定です。
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text または json
}

// LoadConfig loads logging configuration from v.
func LoadConfig(v *viper.Viper) Config {
	return Config{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}
}

// ParseLevel は文字列をslog.Levelに変換します。不明な値はInfoになります。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New は cfg に従って w に出力するロガーを生成します。
func New(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Setup は New で生成したロガーをデフォルトに設定して返します。
func Setup(cfg Config, w io.Writer) *slog.Logger {
	logger := New(cfg, w)
	slog.SetDefault(logger)
	return logger
}
