// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorCategory はAPIエラーの原因カテゴリを表す。
// プレゼンテーション層はカテゴリに基づいて表示方法を選択する
// （例: validationはフォームのインライン表示、authは再ログイン誘導）。
type ErrorCategory string

const (
	// CategoryAuth は認証・認可エラー（無効な資格情報、失効トークン等）。
	CategoryAuth ErrorCategory = "auth"
	// CategoryValidation は入力値の検証エラー（フォームにインライン表示される）。
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound は対象リソースの不在（別セッションによる並行削除等）。
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryNetwork はトランスポート障害（サーバー応答なし）。
	CategoryNetwork ErrorCategory = "network"
	// CategoryServer はメッセージ付きの非2xxレスポンス。
	CategoryServer ErrorCategory = "server"
)

// 定義済みエラーコード
const (
	ErrCodeNetwork            = "NETWORK_ERROR"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAuthRequired       = "AUTH_REQUIRED"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeServer             = "SERVER_ERROR"
)

// APIError は操作失敗の統一表現。
// コアは例外を公開境界を越えて送出せず、すべての失敗経路をこの型で表現する。
// Statusはサーバーが応答した場合のHTTPステータス。トランスポート障害時は0。
// Messageはユーザー向け表示文言（サーバー提供のerrorフィールドを優先し、
// 欠落時はローカライズ済みの汎用文言にフォールバックする）。
type APIError struct {
	Status   int
	Code     string
	Message  string
	Category ErrorCategory
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("[%s] %s (HTTP %d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewNetworkError はトランスポート障害のエラーを生成する。
// DNS失敗、接続拒否、中断などサーバー応答が存在しないケースに使用する。
func NewNetworkError() *APIError {
	return &APIError{
		Status:   0,
		Code:     ErrCodeNetwork,
		Message:  "Netzwerkfehler: Der Server ist nicht erreichbar.",
		Category: CategoryNetwork,
	}
}

// NewInvalidCredentialsError はログイン失敗（無効な資格情報）のエラーを生成する。
func NewInvalidCredentialsError(message string) *APIError {
	if message == "" {
		message = "Ungültige Anmeldedaten."
	}
	return &APIError{
		Status:   401,
		Code:     ErrCodeInvalidCredentials,
		Message:  message,
		Category: CategoryAuth,
	}
}

// NewAuthRequiredError は認証切れ（認証済み呼び出しの401）のエラーを生成する。
// messageが空の場合は汎用文言にフォールバックする。
func NewAuthRequiredError(message string) *APIError {
	if message == "" {
		message = "Die Sitzung ist abgelaufen. Bitte melden Sie sich erneut an."
	}
	return &APIError{
		Status:   401,
		Code:     ErrCodeAuthRequired,
		Message:  message,
		Category: CategoryAuth,
	}
}

// NewValidationError はローカル検証エラーを生成する。
// リクエスト送信前のフォーム検証で使用され、フォームにインライン表示される。
func NewValidationError(message string) *APIError {
	return &APIError{
		Status:   0,
		Code:     ErrCodeValidation,
		Message:  message,
		Category: CategoryValidation,
	}
}

// NewNotFoundError は対象リソース不在のエラーを生成する。
func NewNotFoundError(message string) *APIError {
	if message == "" {
		message = "Der angeforderte Eintrag wurde nicht gefunden."
	}
	return &APIError{
		Status:   404,
		Code:     ErrCodeNotFound,
		Message:  message,
		Category: CategoryNotFound,
	}
}

// NewServerError はサーバー報告エラー（非2xx）を生成する。
// messageが空の場合は汎用文言にフォールバックする。
func NewServerError(status int, message string) *APIError {
	if message == "" {
		message = "Ein unerwarteter Fehler ist aufgetreten. Bitte versuchen Sie es später erneut."
	}
	return &APIError{
		Status:   status,
		Code:     ErrCodeServer,
		Message:  message,
		Category: CategoryServer,
	}
}

// AsAPIError はerrからAPIErrorを抽出する。
// APIError以外のerrorはserverカテゴリの内部エラーとしてラップする。
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewServerError(0, "")
}

// IsCategory はerrが指定カテゴリのAPIErrorかを判定する。
func IsCategory(err error, category ErrorCategory) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Category == category
}
