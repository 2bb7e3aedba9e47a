// Package server はタスクリストAPIのHTTPサーバーを提供する。
//
// 認証系ルート（/signup, /login, /logout）は誰でも呼び出せる。
// タスク系ルートは middleware.JWTAuth によって保護され、
// Cookie または Authorization ヘッダーのトークンが有効な場合のみ処理される。
//
// 認証系のレスポンスは {success, msg}、タスク系のレスポンスは
// {success, message, result} の形式で返す。
package server
