package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/nao1215/tasklist/pkg/token"
)

// ginKeyEmail は認証済みメールアドレスをGinコンテキストに格納するキー。
const ginKeyEmail = "email"

// TokenVerifier はトークンを検証してクレームを返す。
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

type claimsContextKey struct{}

// WithClaims はコンテキストにクレームを設定する。
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext はコンテキストからクレームを取得する。
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims, ok && claims != nil
}

// JWTAuth は保護されたルートの前段でトークンを検証するGinミドルウェアを返す。
// トークンが無い場合と検証に失敗した場合は401を返し、後続のハンドラを実行しない。
// 検証に成功した場合、コンテキストに "email" とクレームを設定する。
func JWTAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := ExtractToken(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"msg":     "No token provided",
			})
			return
		}

		claims, err := verifier.Verify(tokenString)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Warn("トークンの検証に失敗")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"msg":     "Invalid Token",
			})
			return
		}

		c.Set(ginKeyEmail, claims.Email)
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// GetEmail はGinコンテキストから認証済みメールアドレスを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetEmail(c *gin.Context) string {
	email, _ := c.Get(ginKeyEmail)
	if s, ok := email.(string); ok {
		return s
	}
	return ""
}
