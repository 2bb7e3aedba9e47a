// Package apperr はアプリケーション全体で使用するエラー分類を提供する。
//
// HTTP境界では Kind に応じたステータスコードへ変換する。
// 内部原因（Cause）はログにのみ出力し、クライアントには返さない。
package apperr

import (
	"errors"
	"net/http"
)

// Kind はエラーの種類を表す。
type Kind string

const (
	// KindValidation は入力値の欠落・不正を表す。
	KindValidation Kind = "validation"
	// KindNotFound は対象が存在しないことを表す。
	KindNotFound Kind = "not_found"
	// KindConflict は一意制約の衝突を表す。
	KindConflict Kind = "conflict"
	// KindUnauthenticated はトークンの欠落・無効・期限切れを表す。
	KindUnauthenticated Kind = "unauthenticated"
	// KindStore は永続化層の失敗を表す。
	KindStore Kind = "store"
)

// Error は種類付きのアプリケーションエラー。
type Error struct {
	// Kind はエラーの種類。
	Kind Kind
	// Message はクライアントに返す人間向けメッセージ。
	Message string
	// Cause は内部原因。
	Cause error
}

// Error はエラーメッセージを返す。
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap は内部原因を返す。
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is は種類とメッセージが一致する場合にtrueを返す。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// New は種類付きエラーを生成する。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap は内部原因をラップした種類付きエラーを生成する。
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf はエラーチェーンからKindを取り出す。該当しない場合は KindStore を返す。
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStore
}

// MessageOf はクライアント向けメッセージを取り出す。
// 種類付きでないエラーの場合はfallbackを返す。
func MessageOf(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindStore && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// HTTPStatus はエラーに対応するHTTPステータスコードを返す。
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
