// Package sqlite はSQLite上に store.Store を実装する。
//
// タスクはJSONテキストとして1行に保存し、部分更新はトランザクション内で
// 読み出し・マージ・書き戻しを行う。
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nao1215/tasklist/internal/store"
	"github.com/nao1215/tasklist/pkg/migration"
)

//go:embed migrations/*.up.sql
var migrations embed.FS

// Store はSQLiteを使用するストア。
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open はSQLiteデータベースを開き、スキーマを適用する。
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if isMemory(dsn) {
		// インメモリDBは接続ごとに別のDBになるため1接続に限定する
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースへの疎通に失敗: %w", err)
	}
	if _, err := migration.Run(ctx, db, migrations, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	return &Store{db: db}, nil
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Ping はデータベースへの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はデータベース接続を閉じる。
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

// FindUserByEmail はメールアドレスでユーザーを検索する。
func (s *Store) FindUserByEmail(ctx context.Context, email string) (store.User, error) {
	var u store.User
	err := s.db.QueryRowContext(ctx,
		`SELECT email, password_hash FROM users WHERE email = ?`, email,
	).Scan(&u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("ユーザー取得に失敗: %w", err)
	}
	return u, nil
}

// InsertUser はユーザーを登録する。
func (s *Store) InsertUser(ctx context.Context, user store.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES (?, ?)`, user.Email, user.PasswordHash,
	)
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("ユーザー登録に失敗: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// InsertTask はタスクを追加し、UUIDの識別子を返す。
func (s *Store) InsertTask(ctx context.Context, task store.Task) (string, error) {
	data, err := json.Marshal(task.WithoutID())
	if err != nil {
		return "", fmt.Errorf("タスクのシリアライズに失敗: %w", err)
	}

	id := uuid.New().String()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO tasks (id, data) VALUES (?, ?)`, id, string(data)); err != nil {
		return "", fmt.Errorf("タスク追加に失敗: %w", err)
	}
	return id, nil
}

// ListTasks はすべてのタスクを追加順に返す。
func (s *Store) ListTasks(ctx context.Context) ([]store.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM tasks ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]store.Task, 0)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("タスク行の読み取りに失敗: %w", err)
		}
		task, err := decodeTask(id, data)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗: %w", err)
	}
	return tasks, nil
}

// GetTask は識別子でタスクを取得する。
func (s *Store) GetTask(ctx context.Context, id string) (store.Task, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM tasks WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("タスク取得に失敗: %w", err)
	}
	return decodeTask(id, data)
}

// UpdateTask は指定したフィールドのみを上書きする。
func (s *Store) UpdateTask(ctx context.Context, id string, fields store.Task) (store.UpdateResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var data string
	err = tx.QueryRowContext(ctx, `SELECT data FROM tasks WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return store.UpdateResult{}, nil
	}
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("タスク取得に失敗: %w", err)
	}

	current := store.Task{}
	if err := json.Unmarshal([]byte(data), &current); err != nil {
		return store.UpdateResult{}, fmt.Errorf("タスクのデシリアライズに失敗: %w", err)
	}

	// 比較のためJSONを経由して型をデコード結果に揃える
	patch, err := normalize(fields.WithoutID())
	if err != nil {
		return store.UpdateResult{}, err
	}

	modified := false
	for k, v := range patch {
		if old, ok := current[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		current[k] = v
		modified = true
	}
	if !modified {
		return store.UpdateResult{MatchedCount: 1}, nil
	}

	merged, err := json.Marshal(current)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("タスクのシリアライズに失敗: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET data = ?, updated_at = datetime('now') WHERE id = ?`, string(merged), id,
	); err != nil {
		return store.UpdateResult{}, fmt.Errorf("タスク更新に失敗: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return store.UpdateResult{}, fmt.Errorf("コミットに失敗: %w", err)
	}
	return store.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

// DeleteTask はタスクを1件削除する。
func (s *Store) DeleteTask(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("タスク削除に失敗: %w", err)
	}
	return res.RowsAffected()
}

// DeleteTasks は識別子の集合に一致するタスクを削除する。
func (s *Store) DeleteTasks(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("タスク一括削除に失敗: %w", err)
	}
	return res.RowsAffected()
}

func decodeTask(id, data string) (store.Task, error) {
	task := store.Task{}
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("タスク %s のデシリアライズに失敗: %w", id, err)
	}
	task[store.IDField] = id
	return task, nil
}

func normalize(t store.Task) (store.Task, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("更新フィールドのシリアライズに失敗: %w", err)
	}
	out := store.Task{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("更新フィールドのデシリアライズに失敗: %w", err)
	}
	return out, nil
}
