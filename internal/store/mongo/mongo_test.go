package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nao1215/tasklist/internal/store"
)

// setupTestStore はTASKLIST_TEST_MONGO_URIが設定されている場合のみ、
// テストごとに独立したデータベースでストアを構築する。
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("TASKLIST_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TASKLIST_TEST_MONGO_URI が未設定のためスキップ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := "tasklist_test_" + uuid.NewString()[:8]
	s, err := Open(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("MongoDBストアの初期化に失敗: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.client.Database(dbName).Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestToTask(t *testing.T) {
	t.Parallel()

	oid := primitive.NewObjectID()
	task := toTask(bson.M{"_id": oid, "title": "x"})

	if task.ID() != oid.Hex() {
		t.Errorf("_id = %q, want %q", task.ID(), oid.Hex())
	}
	if task["title"] != "x" {
		t.Errorf("title = %v, want %q", task["title"], "x")
	}
}

func TestUsers(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.InsertUser(ctx, store.User{Email: "a@x.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("InsertUser()でエラーが発生: %v", err)
	}
	if err := s.InsertUser(ctx, store.User{Email: "a@x.com", PasswordHash: "h2"}); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}

	got, err := s.FindUserByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindUserByEmail()でエラーが発生: %v", err)
	}
	if got.PasswordHash != "h" {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "h")
	}
	if _, err := s.FindUserByEmail(ctx, "none@x.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTasks(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	id, err := s.InsertTask(ctx, store.Task{"title": "x", "description": "keep"})
	if err != nil {
		t.Fatalf("InsertTask()でエラーが発生: %v", err)
	}

	res, err := s.UpdateTask(ctx, id, store.Task{"title": "y"})
	if err != nil {
		t.Fatalf("UpdateTask()でエラーが発生: %v", err)
	}
	if res.MatchedCount != 1 || res.ModifiedCount != 1 {
		t.Errorf("結果 = %+v, want matched=1 modified=1", res)
	}

	got, err := s.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("GetTask()でエラーが発生: %v", err)
	}
	if got["title"] != "y" || got["description"] != "keep" {
		t.Errorf("取得結果 = %v", got)
	}

	if _, err := s.GetTask(ctx, "not-an-object-id"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	n, err := s.DeleteTasks(ctx, []string{id, primitive.NewObjectID().Hex(), "bad"})
	if err != nil {
		t.Fatalf("DeleteTasks()でエラーが発生: %v", err)
	}
	if n != 1 {
		t.Errorf("削除件数 = %d, want 1", n)
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks()でエラーが発生: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("件数 = %d, want 0", len(tasks))
	}
}
