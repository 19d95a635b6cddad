// Package config はアプリケーション設定を読み込み、*viper.Viper として各パッケージに渡します。
//
// 読み込み順（後勝ち）:
//   - デフォルト値
//   - --config で指定されたYAMLファイル
//   - .env ファイル（存在する場合のみ。既存の環境変数は上書きしない）
//   - 環境変数
//
// キーはすべて環境変数名（例: DB_HOST, REFRESH_INTERVAL）で参照します。
// 各パッケージは LoadConfig(v) で必要な値だけを取り出します。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options は Load の入力です。
type Options struct {
	// Args はコマンドライン引数（os.Args[1:]）です。
	Args []string
	// EnvFiles は読み込む .env ファイルです。空の場合 ".env" を読み込みます。
	EnvFiles []string
	// Flags は追加のフラグを登録するための関数です。
	Flags func(fs *pflag.FlagSet)
}

// Load はフラグ・設定ファイル・環境変数から設定を読み込みます。
// name はフラグセット名（コマンド名）です。
func Load(name string, opts Options) (*viper.Viper, *pflag.FlagSet, error) {
	fset := pflag.NewFlagSet(name, pflag.ContinueOnError)
	file := fset.String("config", "", "specify config file (yaml)")
	if opts.Flags != nil {
		opts.Flags(fset)
	}
	if err := fset.Parse(opts.Args); err != nil {
		return nil, nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return nil, nil, err
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv は Get 時にしか環境変数を参照しないため、
	// デフォルト値を持たないキーは IsSet / Unmarshal 用に明示的にバインドする
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if *file != "" {
		v.SetConfigFile(*file)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config file %s: %w", *file, err)
		}
	}
	return v, fset, nil
}

// loadEnvFiles は .env ファイルを読み込みます。ファイルが存在しない場合は無視します。
func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// boundKeys はデフォルト値を持たない環境変数キーです。
var boundKeys = []string{
	"DB_USER", "DB_PASSWORD", "DB_NAME", "DB_HOST", "DB_PORT", "DB_SSLMODE",
	"INSTANCE_CONNECTION_NAME",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD",
	"JWT_SECRET",
	"COINGECKO_BASE_URL", "COINGECKO_API_KEY", "COINGECKO_API_KEY_HEADER",
	"COINGECKO_TIMEOUT", "COINGECKO_RATE_LIMIT",
}

// SetDefaults はデフォルト値を設定します。
func SetDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("SQLITE_PATH", "crypto.db")
	v.SetDefault("RUN_MIGRATIONS", false)
	v.SetDefault("DB_CONNECT_TIMEOUT", 30*time.Second)
	v.SetDefault("REFRESH_INTERVAL", 60*time.Second)
	v.SetDefault("REFRESH_CURRENCY", "usd")
	v.SetDefault("SEED_SYMBOLS", "BTC,ETH")
	v.SetDefault("CACHE_TTL", 5*time.Minute)
	v.SetDefault("JWT_TTL", 24*time.Hour)
}

// StringList はカンマ区切りの値を空要素を除いたスライスとして返します。
func StringList(v *viper.Viper, key string) []string {
	var out []string
	for _, s := range strings.Split(v.GetString(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
