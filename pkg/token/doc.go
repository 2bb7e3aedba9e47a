// Package token はセッショントークンの発行と検証を提供する。
//
// トークンはHS256で署名されたJWTであり、ユーザーのメールアドレスと
// 有効期限のみを保持する。サーバー側には保存せず、署名と有効期限だけで
// 有効性を判定する。
package token
