// タスクリストサービスのエントリポイント。
// サインアップ・ログインによるトークン発行と、トークンで保護されたタスクのCRUDを提供する。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/nao1215/tasklist/internal/account"
	"github.com/nao1215/tasklist/internal/config"
	"github.com/nao1215/tasklist/internal/server"
	"github.com/nao1215/tasklist/internal/store"
	"github.com/nao1215/tasklist/internal/store/mongo"
	"github.com/nao1215/tasklist/internal/store/sqlite"
	"github.com/nao1215/tasklist/pkg/token"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("タスクリストサービスの実行に失敗: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := log.StandardLogger()
	if err := cfg.ConfigureLogger(logger); err != nil {
		return err
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.WithError(err).Error("ストアのクローズに失敗")
		}
	}()

	tokens, err := token.New([]byte(cfg.JWTSecret), token.WithTTL(cfg.TokenTTL))
	if err != nil {
		return err
	}
	accounts := account.NewService(st, tokens)

	srv := server.New(st, tokens, accounts, server.Options{
		AllowedOrigins: cfg.Origins(),
		SecureCookie:   cfg.Production(),
		Logger:         logger,
	})
	return srv.Run(ctx, cfg.Addr(), cfg.ShutdownTimeout)
}

// openStore は接続先URLに応じてストアを開く。
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.IsMongo() {
		log.WithField("db", cfg.DBName).Info("MongoDBストアを使用します")
		return mongo.Open(ctx, cfg.DatabaseURL, cfg.DBName)
	}
	log.Info("SQLiteストアを使用します")
	return sqlite.Open(ctx, cfg.DatabaseURL)
}
