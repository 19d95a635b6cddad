// Package db はGORMによるデータベース接続（Postgres・MySQL・SQLite）を提供します。
package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	gmysql "gorm.io/driver/mysql"
	gpostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// サポートするドライバー名
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// retryInterval は接続リトライの間隔です。
var retryInterval = 3 * time.Second

// Config はデータベース接続設定です。
type Config struct {
	Driver         string
	User           string
	Password       string
	Name           string
	Host           string
	Port           string
	InstanceName   string // Cloud SQL のインスタンス接続名（設定時はUnixソケット接続）
	SSLMode        string // Postgres のみ
	SQLitePath     string
	ConnectTimeout time.Duration
	RunMigrations  bool
}

// LoadConfig loads database configuration from v.
func LoadConfig(v *viper.Viper) Config {
	return Config{
		Driver:         strings.ToLower(v.GetString("DB_DRIVER")),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetString("DB_PORT"),
		InstanceName:   v.GetString("INSTANCE_CONNECTION_NAME"),
		SSLMode:        v.GetString("DB_SSLMODE"),
		SQLitePath:     v.GetString("SQLITE_PATH"),
		ConnectTimeout: v.GetDuration("DB_CONNECT_TIMEOUT"),
		RunMigrations:  v.GetBool("RUN_MIGRATIONS"),
	}
}

// BuildDSN はドライバーに応じたDSN文字列を生成します。
// InstanceName が設定されている場合、Host/Port より優先してCloud SQLのUnixソケットを使用します。
func BuildDSN(cfg Config) string {
	switch cfg.Driver {
	case DriverMySQL:
		if cfg.InstanceName != "" {
			return fmt.Sprintf("%s:%s@unix(/cloudsql/%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
				cfg.User, cfg.Password, cfg.InstanceName, cfg.Name)
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return "file::memory:?cache=shared"
		}
		return cfg.SQLitePath
	default:
		host, port := cfg.Host, cfg.Port
		if cfg.InstanceName != "" {
			host, port = "/cloudsql/"+cfg.InstanceName, ""
		}
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		parts := []string{
			"host=" + host,
			"user=" + cfg.User,
			"password=" + cfg.Password,
			"dbname=" + cfg.Name,
		}
		if port != "" {
			parts = append(parts, "port="+port)
		}
		parts = append(parts, "sslmode="+sslmode)
		return strings.Join(parts, " ")
	}
}

// Dialector はドライバー名に対応するGORMダイアレクタを返します。
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres, "":
		return gpostgres.Open(dsn), nil
	case DriverMySQL:
		return gmysql.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// ConnectWithRetry は opener が成功するか timeout を過ぎるまで接続を再試行します。
func ConnectWithRetry(dsn string, timeout time.Duration, opener func(dsn string) (*gorm.DB, error)) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("db connect failed after %v: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err, "retry_in", retryInterval)
		time.Sleep(retryInterval)
	}
}

// Open は cfg に従ってデータベースに接続します。
// RUN_MIGRATIONS が true の場合、またはSQLiteの場合は migrate を実行します。
func Open(cfg Config, migrate func(*gorm.DB) error) (*gorm.DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opener := func(dsn string) (*gorm.DB, error) {
		d, err := Dialector(cfg.Driver, dsn)
		if err != nil {
			return nil, err
		}
		return gorm.Open(d, &gorm.Config{TranslateError: true})
	}
	if _, err := Dialector(cfg.Driver, ""); err != nil {
		return nil, err
	}

	db, err := ConnectWithRetry(BuildDSN(cfg), timeout, opener)
	if err != nil {
		return nil, err
	}
	slog.Info("database connected", "driver", cfg.Driver)

	if cfg.Driver == DriverSQLite {
		// SQLiteは同時書き込みができないため接続を1本に制限
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if migrate != nil && (cfg.RunMigrations || cfg.Driver == DriverSQLite) {
		if err := migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
		slog.Info("database migrated")
	}
	return db, nil
}

// Ping はデータベースへの疎通を確認します。
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close は接続プールを閉じます。
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
