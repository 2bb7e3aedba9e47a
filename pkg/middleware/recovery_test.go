package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// TestRecovery はRecoveryミドルウェアを検証する。
func TestRecovery(t *testing.T) {
	t.Parallel()

	t.Run("パニックが発生した場合500が返りログに記録されること", func(t *testing.T) {
		t.Parallel()

		logger, hook := test.NewNullLogger()
		router := gin.New()
		router.Use(RequestID(), Recovery(logger))
		router.GET("/panic", func(_ *gin.Context) {
			panic("テスト用パニック")
		})

		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}

		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["success"] != false || body["msg"] != "Server error" {
			t.Errorf("body = %v", body)
		}
		if strings.Contains(w.Body.String(), "テスト用パニック") {
			t.Error("パニックの内容がクライアントに返されている")
		}

		entry := hook.LastEntry()
		if entry == nil {
			t.Fatal("ログが出力されていない")
		}
		if entry.Level != log.ErrorLevel {
			t.Errorf("ログレベル = %v, want %v", entry.Level, log.ErrorLevel)
		}
		if entry.Data["panic"] != "テスト用パニック" {
			t.Errorf("panic = %v, want %q", entry.Data["panic"], "テスト用パニック")
		}
		if entry.Data["path"] != "/panic" {
			t.Errorf("path = %v, want %q", entry.Data["path"], "/panic")
		}
		if entry.Data["request_id"] == "" {
			t.Error("request_idが記録されていない")
		}
	})

	t.Run("パニックが発生しない場合は正常にレスポンスが返ること", func(t *testing.T) {
		t.Parallel()

		logger, hook := test.NewNullLogger()
		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/ok", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if len(hook.AllEntries()) != 0 {
			t.Errorf("ログ件数 = %d, want 0", len(hook.AllEntries()))
		}
	})

	t.Run("文字列以外のパニック値でも500が返ること", func(t *testing.T) {
		t.Parallel()

		logger, _ := test.NewNullLogger()
		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/panic-int", func(_ *gin.Context) {
			panic(42)
		})

		req := httptest.NewRequest(http.MethodGet, "/panic-int", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}
