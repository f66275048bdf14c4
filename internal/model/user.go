// Package model はドメインモデルを定義する。
package model

// UserAccount は管理画面で扱うユーザーアカウントを表す。
// パスワードは書き込み専用フィールドであり、読み取りレスポンスには決して含まれない。
// 作成・更新リクエストのペイロード構築はusersパッケージが担当する。
type UserAccount struct {
	ID       int
	Username string
	Email    string
	Role     Role
}
