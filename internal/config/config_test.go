package config

import (
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

// t.Setenv を使うためこのファイルのテストは並列実行しない。

func TestLoad(t *testing.T) {
	t.Run("既定値が設定されること", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.Port != "3200" {
			t.Errorf("Port = %q, want %q", cfg.Port, "3200")
		}
		if cfg.TokenTTL != 120*time.Hour {
			t.Errorf("TokenTTL = %v, want %v", cfg.TokenTTL, 120*time.Hour)
		}
		if cfg.ShutdownTimeout != 10*time.Second {
			t.Errorf("ShutdownTimeout = %v, want %v", cfg.ShutdownTimeout, 10*time.Second)
		}
		if cfg.DBName != "tasklist" {
			t.Errorf("DBName = %q, want %q", cfg.DBName, "tasklist")
		}
		if cfg.IsMongo() {
			t.Error("既定の接続先はSQLiteであるべき")
		}
		if cfg.Production() {
			t.Error("既定では本番環境ではないべき")
		}
		if cfg.Addr() != ":3200" {
			t.Errorf("Addr() = %q, want %q", cfg.Addr(), ":3200")
		}
	})

	t.Run("JWT_SECRETが無い場合はエラーになること", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")

		_, err := Load()
		if err == nil {
			t.Fatal("JWT_SECRETが空の場合にエラーが返されるべき")
		}
		if !strings.Contains(err.Error(), "parse env:") {
			t.Errorf("エラーメッセージ = %q", err.Error())
		}
	})

	t.Run("MONGO_URIがDATABASE_URLより優先されること", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DATABASE_URL", "file:other.db")
		t.Setenv("MONGO_URI", "mongodb://localhost:27017")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if cfg.DatabaseURL != "mongodb://localhost:27017" {
			t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
		}
		if !cfg.IsMongo() {
			t.Error("mongodb:// の接続先はMongoDBと判定されるべき")
		}
	})

	t.Run("不正な期間はエラーになること", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("TOKEN_TTL", "five-days")

		if _, err := Load(); err == nil {
			t.Fatal("不正なTOKEN_TTLでエラーが返されるべき")
		}
	})

	t.Run("0以下のTOKEN_TTLはエラーになること", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("TOKEN_TTL", "0s")

		if _, err := Load(); err == nil {
			t.Fatal("TOKEN_TTL=0sでエラーが返されるべき")
		}
	})
}

func TestOrigins(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		ClientURL:      "https://app.example.com",
		AllowedOrigins: []string{" http://localhost:5173", "", "https://app.example.com", "http://localhost:3000"},
	}

	want := []string{"https://app.example.com", "http://localhost:5173", "http://localhost:3000"}
	if got := cfg.Origins(); !reflect.DeepEqual(got, want) {
		t.Errorf("Origins() = %v, want %v", got, want)
	}
}

func TestIsMongo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want bool
	}{
		{url: "mongodb://localhost:27017", want: true},
		{url: "mongodb+srv://cluster.example.net", want: true},
		{url: "file:tasklist.db", want: false},
		{url: ":memory:", want: false},
	}
	for _, tt := range tests {
		cfg := &Config{DatabaseURL: tt.url}
		if got := cfg.IsMongo(); got != tt.want {
			t.Errorf("IsMongo(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestConfigureLogger(t *testing.T) {
	t.Parallel()

	t.Run("レベルと形式が反映されること", func(t *testing.T) {
		t.Parallel()

		logger := log.New()
		logger.SetOutput(io.Discard)
		cfg := &Config{LogLevel: "debug", LogFormat: "json"}

		if err := cfg.ConfigureLogger(logger); err != nil {
			t.Fatalf("ConfigureLogger()でエラーが発生: %v", err)
		}
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("level = %v, want %v", logger.GetLevel(), log.DebugLevel)
		}
		if _, ok := logger.Formatter.(*log.JSONFormatter); !ok {
			t.Errorf("formatter = %T, want *logrus.JSONFormatter", logger.Formatter)
		}
	})

	t.Run("不正な値はエラーになること", func(t *testing.T) {
		t.Parallel()

		if err := (&Config{LogLevel: "loud", LogFormat: "text"}).ConfigureLogger(log.New()); err == nil {
			t.Error("不正なLOG_LEVELでエラーが返されるべき")
		}
		if err := (&Config{LogLevel: "info", LogFormat: "xml"}).ConfigureLogger(log.New()); err == nil {
			t.Error("不正なLOG_FORMATでエラーが返されるべき")
		}
	})
}
