package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/nao1215/tasklist/internal/account"
	"github.com/nao1215/tasklist/internal/apperr"
	"github.com/nao1215/tasklist/pkg/middleware"
)

// credentialsRequest はサインアップとログインのリクエストJSON構造。
type credentialsRequest struct {
	// Email はユーザーのメールアドレス。
	Email string `json:"email" binding:"required"`
	// Password は平文のパスワード。
	Password string `json:"password" binding:"required"`
}

// handleSignup はユーザー登録を処理するハンドラを返す。
// 登録に成功した場合はトークンをCookieとレスポンスボディの両方で返す。
func (s *Server) handleSignup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.respondAuthError(c, account.ErrMissingCredentials)
			return
		}

		tok, err := s.accounts.Signup(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			s.respondAuthError(c, err)
			return
		}

		s.setSessionCookie(c, tok)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"msg":     "User registered successfully",
			"token":   tok,
		})
	}
}

// handleLogin はログインを処理するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.respondAuthError(c, account.ErrMissingCredentials)
			return
		}

		tok, err := s.accounts.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			s.respondAuthError(c, err)
			return
		}

		s.setSessionCookie(c, tok)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"msg":     "Logged In successfully",
			"token":   tok,
		})
	}
}

// handleLogout はセッションCookieを削除する。
// トークン自体はステートレスなので失効はさせない。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetSameSite(http.SameSiteNoneMode)
		c.SetCookie(middleware.CookieName, "", -1, "/", "", s.secureCookie, true)
		c.JSON(http.StatusOK, gin.H{"success": true, "msg": "Logged out"})
	}
}

// setSessionCookie はトークンをHttpOnlyのCookieとして設定する。
func (s *Server) setSessionCookie(c *gin.Context, tok string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middleware.CookieName, tok, int(s.tokens.TTL().Seconds()), "/", "", s.secureCookie, true)
}

// respondAuthError は認証系ルートのエラーレスポンスを返す。
// ストア障害などの内部エラーは詳細をログにのみ出力する。
func (s *Server) respondAuthError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(log.Fields{
			"path":       c.Request.URL.Path,
			"request_id": middleware.GetRequestID(c),
		}).Error("認証処理に失敗")
	}
	c.JSON(status, gin.H{
		"success": false,
		"msg":     apperr.MessageOf(err, "Server error"),
	})
}
