// Package client はタスクリストAPIを呼び出すGoクライアントを提供する。
//
// サインアップまたはログインで受け取ったトークンを保持し、
// 以降のタスク操作では Authorization: Bearer ヘッダーとして送信する。
// サーバーがエラーを返した場合は *APIError を返す。
package client
