// Package users はユーザーアカウントの管理操作を提供する。
// すべての操作は管理者専用であり、サーバーが独立して認可する。
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/hitoshi/seoconsole/internal/apiclient"
	"github.com/hitoshi/seoconsole/internal/controller"
	"github.com/hitoshi/seoconsole/internal/model"
)

// Requester はAPIリクエスト発行のインターフェース。
type Requester interface {
	Do(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error)
}

// Service はユーザーアカウントの一覧・作成・更新・削除を提供する。
type Service struct {
	client Requester
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(client Requester, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		logger: logger,
	}
}

// Fields はユーザーフォームのフィールド集合。
// Passwordは作成時必須、編集時は空のままにすると変更されない。
type Fields struct {
	Username string
	Email    string
	Password string
	Role     model.Role
}

// userPayload はユーザー1件のJSON表現。パスワードは応答に含まれない。
type userPayload struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// List は全ユーザーを単一ページとして取得する。
// サーバーはページネーションなしの配列を返すため、
// リストコントローラとの互換のために1ページへ適合させる。
// クエリのページ番号・検索語は無視される。
func (s *Service) List(ctx context.Context, q controller.ListQuery) (model.Page[model.UserAccount], error) {
	raw, err := s.client.Do(ctx, http.MethodGet, "/api/users", nil, apiclient.AuthBearer)
	if err != nil {
		return model.EmptyPage[model.UserAccount](), err
	}

	var payload []userPayload
	if err := apiclient.DecodeInto(raw, &payload); err != nil {
		return model.EmptyPage[model.UserAccount](), err
	}

	items := make([]model.UserAccount, 0, len(payload))
	for _, p := range payload {
		items = append(items, toAccount(p))
	}
	return model.NormalizePage(items, 1, 1), nil
}

// createRequest は作成エンドポイントへのリクエストボディ。
type createRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create は新規ユーザーを作成する。
// 検証失敗時はリクエストを発行しない。
func (s *Service) Create(ctx context.Context, f Fields) (*model.UserAccount, error) {
	if err := s.ValidateFields(controller.ModeCreate, f); err != nil {
		return nil, err
	}

	raw, err := s.client.Do(ctx, http.MethodPost, "/api/users", createRequest{
		Username: strings.TrimSpace(f.Username),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
		Role:     string(f.Role),
	}, apiclient.AuthBearer)
	if err != nil {
		return nil, err
	}

	var payload userPayload
	if err := apiclient.DecodeInto(raw, &payload); err != nil {
		return nil, err
	}

	account := toAccount(payload)
	s.logger.Info("user created",
		slog.Int("user_id", account.ID),
		slog.String("role", string(account.Role)),
	)
	return &account, nil
}

// updateRequest は更新エンドポイントへのリクエストボディ。
// パスワードが空の場合はキー自体を省略し、サーバーは既存の
// パスワードを維持する（空文字列での上書きを防ぐ）。
type updateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

// Update は既存ユーザーを更新する。
// パスワード欄が空の場合、送信ペイロードにpasswordキーは含まれない。
func (s *Service) Update(ctx context.Context, id int, f Fields) (*model.UserAccount, error) {
	if err := s.ValidateFields(controller.ModeEdit, f); err != nil {
		return nil, err
	}

	raw, err := s.client.Do(ctx, http.MethodPut, fmt.Sprintf("/api/users/%d", id), updateRequest{
		Username: strings.TrimSpace(f.Username),
		Email:    strings.TrimSpace(f.Email),
		Role:     string(f.Role),
		Password: f.Password,
	}, apiclient.AuthBearer)
	if err != nil {
		return nil, err
	}

	var payload userPayload
	if err := apiclient.DecodeInto(raw, &payload); err != nil {
		return nil, err
	}

	account := toAccount(payload)
	s.logger.Info("user updated", slog.Int("user_id", account.ID))
	return &account, nil
}

// Delete はユーザーを削除する。
// 最後の管理者の削除はサーバーが拒否し、そのエラーがそのまま返る。
func (s *Service) Delete(ctx context.Context, id int) error {
	_, err := s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/users/%d", id), nil, apiclient.AuthBearer)
	return err
}

// ValidateFields はフォームフィールドのローカル検証を行う。
// 作成時はパスワードが必須。編集時の空パスワードは「変更なし」を意味するため許可する。
// FormControllerのValidateフックとしてそのまま使用できる。
func (s *Service) ValidateFields(mode controller.FormMode, f Fields) error {
	if strings.TrimSpace(f.Username) == "" {
		return model.NewValidationError("Bitte einen Benutzernamen eingeben.")
	}
	email := strings.TrimSpace(f.Email)
	if email == "" {
		return model.NewValidationError("Bitte eine E-Mail-Adresse eingeben.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.NewValidationError("Bitte eine gültige E-Mail-Adresse eingeben.")
	}
	if !f.Role.IsValid() {
		return model.NewValidationError("Unbekannte Rolle.")
	}
	if mode == controller.ModeCreate && f.Password == "" {
		return model.NewValidationError("Bitte ein Passwort für den neuen Benutzer vergeben.")
	}
	return nil
}

// toAccount はJSON表現をドメインモデルへ変換する。
func toAccount(p userPayload) model.UserAccount {
	return model.UserAccount{
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
		Role:     model.Role(p.Role),
	}
}
