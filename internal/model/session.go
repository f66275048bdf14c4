// Package model はドメインモデルを定義する。
package model

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザーロール。
	RoleUser Role = "user"
	// RoleAdmin は管理者ロール。ユーザー管理と結果削除が許可される。
	RoleAdmin Role = "admin"
)

// IsValid はロールが定義済みの値かを検証する。
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Session はログイン中のユーザーセッションを表す。
// ログイン成功時に生成され、ログアウトまたはトークン失効（任意のAPI呼び出しの401）で破棄される。
// session.Storeが排他的に所有し、他のコンポーネントは読み取り専用。
type Session struct {
	Token    string
	Username string
	Role     Role
}

// IsPrivileged はセッションが管理者権限を持つかを返す。
// UI表示のゲーティング専用であり、セキュリティ境界ではない
// （特権操作の認可はサーバーが独立して行う）。
func (s *Session) IsPrivileged() bool {
	return s != nil && s.Role == RoleAdmin
}
