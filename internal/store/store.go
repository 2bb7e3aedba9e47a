// Package store はユーザーとタスクを保持するドキュメントストアの抽象を提供する。
//
// 実装は sqlite（既定）と mongo の2種類があり、どちらも1リクエストにつき
// 単一ドキュメント操作のみを行う。並行制御は下位のデータベースに委ねる。
package store

import (
	"context"
	"errors"
)

// IDField はタスクドキュメントの識別子を格納するキー。
const IDField = "_id"

var (
	// ErrNotFound は対象のドキュメントが存在しないことを表す。
	// 識別子の形式がバックエンドにとって不正な場合もこのエラーになる。
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate は一意キーが既に存在することを表す。
	ErrDuplicate = errors.New("duplicate key")
)

// User は登録済みユーザー。メールアドレスが一意キーとなる。
type User struct {
	// Email はユーザーのメールアドレス。保存時の大文字小文字を区別する。
	Email string
	// PasswordHash はbcryptでハッシュ化したパスワード。
	PasswordHash string
}

// Task は任意のキーと値を持つタスクドキュメント。
// 識別子は IDField に文字列として格納される。
type Task map[string]any

// ID はタスクの識別子を返す。
func (t Task) ID() string {
	id, _ := t[IDField].(string)
	return id
}

// WithoutID は識別子を除いたコピーを返す。
func (t Task) WithoutID() Task {
	out := make(Task, len(t))
	for k, v := range t {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// UpdateResult は部分更新の結果。
type UpdateResult struct {
	// MatchedCount は識別子に一致したドキュメント数。
	MatchedCount int64 `json:"matchedCount"`
	// ModifiedCount は実際に変更されたドキュメント数。
	ModifiedCount int64 `json:"modifiedCount"`
}

// Users はユーザーの永続化操作。
type Users interface {
	// FindUserByEmail はメールアドレスでユーザーを検索する。存在しない場合は ErrNotFound を返す。
	FindUserByEmail(ctx context.Context, email string) (User, error)
	// InsertUser はユーザーを登録する。メールアドレスが重複する場合は ErrDuplicate を返す。
	InsertUser(ctx context.Context, user User) error
}

// Tasks はタスクの永続化操作。
type Tasks interface {
	// InsertTask はタスクを追加し、採番した識別子を返す。入力の IDField は無視する。
	InsertTask(ctx context.Context, task Task) (string, error)
	// ListTasks はすべてのタスクを追加順に返す。
	ListTasks(ctx context.Context) ([]Task, error)
	// GetTask は識別子でタスクを取得する。存在しない場合は ErrNotFound を返す。
	GetTask(ctx context.Context, id string) (Task, error)
	// UpdateTask は指定したフィールドのみを上書きする（マージ更新）。
	UpdateTask(ctx context.Context, id string, fields Task) (UpdateResult, error)
	// DeleteTask はタスクを1件削除し、削除件数を返す。
	DeleteTask(ctx context.Context, id string) (int64, error)
	// DeleteTasks は識別子の集合に一致するタスクを削除し、削除件数を返す。
	DeleteTasks(ctx context.Context, ids []string) (int64, error)
}

// Store はユーザーとタスクの両方を扱うストア。
// 所有者（プロセス起動処理）が Close を呼び出して解放する。
type Store interface {
	Users
	Tasks
	// Ping はストアへの疎通を確認する。
	Ping(ctx context.Context) error
	// Close は接続を解放する。
	Close(ctx context.Context) error
}
