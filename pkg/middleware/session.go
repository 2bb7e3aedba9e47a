package middleware

import (
	"net/http"
	"strings"
)

// CookieName はセッショントークンを格納するCookieの名前。
const CookieName = "token"

// ExtractToken はリクエストからセッショントークンを取り出す。
// Cookie "token" を最優先し、無ければ "Authorization: Bearer <token>" を参照する。
// スキーム名の大文字小文字は区別しない。
func ExtractToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
