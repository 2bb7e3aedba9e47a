package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/nao1215/tasklist/internal/account"
	"github.com/nao1215/tasklist/internal/store"
	"github.com/nao1215/tasklist/pkg/middleware"
	"github.com/nao1215/tasklist/pkg/token"
)

// Options はサーバーの任意設定。
type Options struct {
	// AllowedOrigins はCORSで資格情報付きリクエストを許可するオリジン。
	AllowedOrigins []string
	// SecureCookie はセッションCookieにSecure属性を付けるかどうか。
	SecureCookie bool
	// Logger はアクセスログとエラーログの出力先。nilの場合は標準ロガーを使う。
	Logger log.FieldLogger
}

// Server はタスクリストAPIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// store はユーザーとタスクのストア。所有者は呼び出し側。
	store store.Store
	// tokens はセッショントークンの発行と検証を行う。
	tokens *token.Service
	// accounts はサインアップとログインを扱う。
	accounts *account.Service
	// logger はサーバー全体のロガー。
	logger log.FieldLogger
	// secureCookie はCookieのSecure属性。
	secureCookie bool
}

// New は新しいサーバーを生成し、ルーティングを設定する。
// ストアの解放は呼び出し側が行う。
func New(st store.Store, tokens *token.Service, accounts *account.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	s := &Server{
		router:       router,
		store:        st,
		tokens:       tokens,
		accounts:     accounts,
		logger:       logger,
		secureCookie: opts.SecureCookie,
	}
	s.setupRoutes()

	return s
}

// Handler はルーティング済みのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run は addr でHTTPサーバーを起動し、ctx が終了するまで待つ。
// ctx の終了後は shutdownTimeout の範囲で処理中のリクエストを待ってから停止する。
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("タスクリストサービスを起動します")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("シャットダウンを開始します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	s.router.POST("/signup", s.handleSignup())
	s.router.POST("/login", s.handleLogin())
	s.router.POST("/logout", s.handleLogout())

	api := s.router.Group("/")
	api.Use(middleware.JWTAuth(s.tokens))
	{
		api.POST("/add-task", s.handleAddTask())
		api.GET("/tasks", s.handleListTasks())
		api.GET("/task/:id", s.handleGetTask())
		api.PUT("/update-task", s.handleUpdateTask())
		api.DELETE("/delete/:id", s.handleDeleteTask())
		api.DELETE("/delete-multiple", s.handleDeleteTasks())
	}

	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())
}

// handleHealth はストアへの疎通を含むヘルスチェックを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			s.logger.WithError(err).Error("ストアへの疎通確認に失敗")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "tasklist"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "tasklist"})
	}
}
