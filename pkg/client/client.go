package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Task はタスクドキュメント。識別子は "_id" キーに格納される。
type Task map[string]any

// UpdateResult はタスク更新の結果。
type UpdateResult struct {
	// MatchedCount は識別子に一致したタスク数。
	MatchedCount int64 `json:"matchedCount"`
	// ModifiedCount は実際に変更されたタスク数。
	ModifiedCount int64 `json:"modifiedCount"`
}

// APIError はサーバーが2xx以外を返したことを表す。
type APIError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Message はサーバーが返したメッセージ。
	Message string
}

// Error はエラーメッセージを返す。
func (e *APIError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, message=%s", e.StatusCode, e.Message)
}

// StatusCode はエラーが *APIError の場合にそのステータスコードを返す。
// それ以外の場合は0を返す。
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client はタスクリストAPIのHTTPクライアント。
// 複数のgoroutineから同時に使用できる。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サーバーのベースURL。
	baseURL string

	mu    sync.RWMutex
	token string
}

// Option はクライアントの設定を変更する関数。
type Option func(*Client)

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken は既に発行済みのトークンを設定する。
func WithToken(tok string) Option {
	return func(c *Client) {
		c.token = tok
	}
}

// New は新しいクライアントを生成する。
// baseURLには接続先サーバーのベースURL（例: "http://localhost:3200"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token は現在保持しているトークンを返す。
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// credentials はサインアップとログインのリクエストボディ。
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// envelope はサーバーの共通レスポンス構造。
// 認証系は msg、タスク系は message にメッセージが入る。
type envelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Result  json.RawMessage `json:"result"`
}

func (e *envelope) text() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Message
}

// Signup はユーザーを登録し、発行されたトークンを保持する。
func (c *Client) Signup(ctx context.Context, email, password string) error {
	env, err := c.doJSON(ctx, http.MethodPost, "/signup", credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	c.setToken(env.Token)
	return nil
}

// Login はログインし、発行されたトークンを保持する。
func (c *Client) Login(ctx context.Context, email, password string) error {
	env, err := c.doJSON(ctx, http.MethodPost, "/login", credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	c.setToken(env.Token)
	return nil
}

// Logout はログアウトし、保持しているトークンを破棄する。
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.doJSON(ctx, http.MethodPost, "/logout", nil); err != nil {
		return err
	}
	c.setToken("")
	return nil
}

// AddTask はタスクを追加し、採番された識別子を返す。
func (c *Client) AddTask(ctx context.Context, task Task) (string, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/add-task", task)
	if err != nil {
		return "", err
	}
	var result struct {
		InsertedID string `json:"insertedId"`
	}
	if err := decodeResult(env, &result); err != nil {
		return "", err
	}
	return result.InsertedID, nil
}

// ListTasks はすべてのタスクを返す。
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}
	var tasks []Task
	if err := decodeResult(env, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask は識別子でタスクを取得する。
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/task/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var task Task
	if err := decodeResult(env, &task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask は指定したフィールドでタスクを部分更新する。
func (c *Client) UpdateTask(ctx context.Context, id string, fields Task) (UpdateResult, error) {
	body := make(Task, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["_id"] = id

	env, err := c.doJSON(ctx, http.MethodPut, "/update-task", body)
	if err != nil {
		return UpdateResult{}, err
	}
	var result UpdateResult
	if err := decodeResult(env, &result); err != nil {
		return UpdateResult{}, err
	}
	return result, nil
}

// DeleteTask はタスクを1件削除する。
func (c *Client) DeleteTask(ctx context.Context, id string) (int64, error) {
	env, err := c.doJSON(ctx, http.MethodDelete, "/delete/"+url.PathEscape(id), nil)
	if err != nil {
		return 0, err
	}
	return decodeDeletedCount(env)
}

// DeleteTasks は複数のタスクを削除し、削除件数を返す。
// 1件も削除されなかった場合はエラーではなく0を返す。
func (c *Client) DeleteTasks(ctx context.Context, ids []string) (int64, error) {
	env, err := c.doJSON(ctx, http.MethodDelete, "/delete-multiple", ids)
	if err != nil {
		return 0, err
	}
	return decodeDeletedCount(env)
}

func decodeDeletedCount(env *envelope) (int64, error) {
	var result struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	if err := decodeResult(env, &result); err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func decodeResult(env *envelope, v any) error {
	if len(env.Result) == 0 {
		return errors.New("レスポンスにresultが含まれていない")
	}
	if err := json.Unmarshal(env.Result, v); err != nil {
		return fmt.Errorf("resultのデシリアライズに失敗: %w", err)
	}
	return nil
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		if decodeErr == nil && env.text() != "" {
			msg = env.text()
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", decodeErr)
	}
	return &env, nil
}
