// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

// EnvProduction は本番環境を表す APP_ENV の値。
const EnvProduction = "production"

// Config はサーバー全体の設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `env:"PORT" envDefault:"3200"`
	// DatabaseURL はストアの接続先。mongodb:// で始まる場合はMongoDBを使用する。
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:tasklist.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`
	// MongoURI は設定されている場合 DatabaseURL より優先される。
	MongoURI string `env:"MONGO_URI"`
	// DBName はMongoDBのデータベース名。
	DBName string `env:"DB_NAME" envDefault:"tasklist"`
	// JWTSecret はトークン署名用のシークレット。必須。
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	// TokenTTL はトークンの有効期間。
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"120h"`
	// ClientURL はフロントエンドのオリジン。
	ClientURL string `env:"CLIENT_URL"`
	// AllowedOrigins はCORSで許可する追加のオリジン。
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:5173,http://localhost:3000" envSeparator:","`
	// AppEnv は実行環境名。
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	// LogLevel はlogrusのログレベル。
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat はログの出力形式（text または json）。
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	// ShutdownTimeout はグレースフルシャットダウンの待ち時間。
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load は環境変数から設定を読み込む。
// JWT_SECRET が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MongoURI != "" {
		cfg.DatabaseURL = cfg.MongoURI
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("TOKEN_TTL must be positive")
	}
	return &cfg, nil
}

// Origins はCORSで許可するオリジンの一覧を返す。
// CLIENT_URL と ALLOWED_ORIGINS を結合し、空要素と重複を除く。
func (c *Config) Origins() []string {
	candidates := append([]string{c.ClientURL}, c.AllowedOrigins...)
	seen := make(map[string]struct{}, len(candidates))
	origins := make([]string, 0, len(candidates))
	for _, o := range candidates {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		origins = append(origins, o)
	}
	return origins
}

// IsMongo は接続先がMongoDBかどうかを返す。
func (c *Config) IsMongo() bool {
	return strings.HasPrefix(c.DatabaseURL, "mongodb://") ||
		strings.HasPrefix(c.DatabaseURL, "mongodb+srv://")
}

// Production は本番環境で動作しているかを返す。
func (c *Config) Production() bool {
	return c.AppEnv == EnvProduction
}

// Addr はHTTPサーバーのリッスンアドレスを返す。
func (c *Config) Addr() string {
	return ":" + c.Port
}

// ConfigureLogger はログレベルと出力形式を logger に反映する。
func (c *Config) ConfigureLogger(logger *log.Logger) error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logger.SetLevel(level)

	switch c.LogFormat {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %q", c.LogFormat)
	}
	return nil
}
