package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/tasklist/internal/account"
	"github.com/nao1215/tasklist/internal/server"
	"github.com/nao1215/tasklist/internal/store/sqlite"
	"github.com/nao1215/tasklist/pkg/client"
	"github.com/nao1215/tasklist/pkg/token"
)

// startServer はインメモリSQLiteを使ったAPIサーバーを起動する。
func startServer(t *testing.T) *httptest.Server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	st, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("インメモリSQLiteの初期化に失敗: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	tokens, err := token.New([]byte("scenario-secret"))
	if err != nil {
		t.Fatalf("token.New()でエラーが発生: %v", err)
	}
	logger, _ := test.NewNullLogger()
	srv := server.New(st, tokens, account.NewService(st, tokens, account.WithBcryptCost(bcrypt.MinCost)), server.Options{
		Logger: logger,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// TestScenario はサインアップからタスクの一括削除までの一連の操作を検証する。
func TestScenario(t *testing.T) {
	t.Parallel()

	ts := startServer(t)
	ctx := context.Background()
	c := client.New(ts.URL)

	if err := c.Signup(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("Signup()でエラーが発生: %v", err)
	}
	if c.Token() == "" {
		t.Fatal("サインアップ後にトークンが保持されていない")
	}

	idA, err := c.AddTask(ctx, client.Task{"title": "t", "done": false})
	if err != nil {
		t.Fatalf("AddTask()でエラーが発生: %v", err)
	}

	tasks, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks()でエラーが発生: %v", err)
	}
	if len(tasks) != 1 || tasks[0]["_id"] != idA || tasks[0]["title"] != "t" || tasks[0]["done"] != false {
		t.Fatalf("tasks = %v", tasks)
	}

	result, err := c.UpdateTask(ctx, idA, client.Task{"done": true})
	if err != nil {
		t.Fatalf("UpdateTask()でエラーが発生: %v", err)
	}
	if result.MatchedCount != 1 {
		t.Errorf("MatchedCount = %d, want 1", result.MatchedCount)
	}

	got, err := c.GetTask(ctx, idA)
	if err != nil {
		t.Fatalf("GetTask()でエラーが発生: %v", err)
	}
	if got["done"] != true || got["title"] != "t" {
		t.Errorf("task = %v, want title=t done=true", got)
	}

	n, err := c.DeleteTasks(ctx, []string{idA, "unknown"})
	if err != nil {
		t.Fatalf("DeleteTasks()でエラーが発生: %v", err)
	}
	if n != 1 {
		t.Errorf("deletedCount = %d, want 1", n)
	}

	if _, err := c.GetTask(ctx, idA); client.StatusCode(err) != http.StatusNotFound {
		t.Errorf("削除後のGetTask(): err = %v, want 404", err)
	}

	// 別クライアントからの再ログインと重複登録
	other := client.New(ts.URL)
	if err := other.Signup(ctx, "a@x.com", "pw"); client.StatusCode(err) != http.StatusConflict {
		t.Errorf("重複サインアップ: err = %v, want 409", err)
	}
	if err := other.Login(ctx, "a@x.com", "wrong"); client.StatusCode(err) != http.StatusNotFound {
		t.Errorf("誤ったパスワード: err = %v, want 404", err)
	}
	if err := other.Login(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("Login()でエラーが発生: %v", err)
	}
	if _, err := other.ListTasks(ctx); err != nil {
		t.Errorf("ログイン後のListTasks()でエラーが発生: %v", err)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout()でエラーが発生: %v", err)
	}
	if _, err := c.ListTasks(ctx); client.StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("ログアウト後のListTasks(): err = %v, want 401", err)
	}
}
