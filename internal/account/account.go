// Package account はユーザー登録（signup）とログイン（login）を提供する。
//
// パスワードはbcryptでハッシュ化して保存し、ログイン時はハッシュと比較する。
// 成功時はトークンサービスでセッショントークンを発行する。
package account

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/tasklist/internal/apperr"
	"github.com/nao1215/tasklist/internal/store"
)

var (
	// ErrMissingCredentials はメールアドレスまたはパスワードが空であることを表す。
	ErrMissingCredentials = apperr.New(apperr.KindValidation, "Please enter valid email and password")
	// ErrPasswordTooLong はbcryptで扱えない長さのパスワードであることを表す。
	ErrPasswordTooLong = apperr.New(apperr.KindValidation, "Password must be at most 72 bytes")
	// ErrUserNotFound はメールアドレスとパスワードに一致するユーザーがいないことを表す。
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "User Not Found")
	// ErrUserAlreadyExists は同じメールアドレスのユーザーが既に存在することを表す。
	ErrUserAlreadyExists = apperr.New(apperr.KindConflict, "User already exists")
)

// Issuer はメールアドレスからトークンを発行する。
type Issuer interface {
	Issue(email string) (string, error)
}

// Service はユーザー登録とログインを行う。
type Service struct {
	users  store.Users
	tokens Issuer
	cost   int
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithBcryptCost はbcryptのコストを設定する。
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// NewService は新しいServiceを生成する。
func NewService(users store.Users, tokens Issuer, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup はユーザーを登録してトークンを返す。
func (s *Service) Signup(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}

	_, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return "", ErrUserAlreadyExists
	case !errors.Is(err, store.ErrNotFound):
		return "", apperr.Wrap(apperr.KindStore, "ユーザー取得に失敗", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}

	// 事前確認と登録の間に同じメールアドレスが登録された場合は一意制約で検出する
	if err := s.users.InsertUser(ctx, store.User{Email: email, PasswordHash: string(hash)}); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", ErrUserAlreadyExists
		}
		return "", apperr.Wrap(apperr.KindStore, "ユーザー登録に失敗", err)
	}

	return s.issue(email)
}

// Login はメールアドレスとパスワードを検証してトークンを返す。
// ユーザーが存在しない場合とパスワードが一致しない場合は区別せず ErrUserNotFound を返す。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindStore, "ユーザー取得に失敗", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrUserNotFound
	}

	return s.issue(user.Email)
}

func (s *Service) issue(email string) (string, error) {
	tok, err := s.tokens.Issue(email)
	if err != nil {
		return "", fmt.Errorf("トークン発行に失敗: %w", err)
	}
	return tok, nil
}
