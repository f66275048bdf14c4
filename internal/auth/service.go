// Package auth はログイン・ログアウトの認証フローを提供する。
package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/seoconsole/internal/apiclient"
	"github.com/hitoshi/seoconsole/internal/model"
)

// SessionWriter はセッションの書き込みインターフェース。
// session.Storeの部分集合として定義する。
type SessionWriter interface {
	Set(sess model.Session)
	Clear()
}

// Requester は認証エンドポイントへのリクエスト発行インターフェース。
type Requester interface {
	Do(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error)
}

// SessionEventRecorder はセッション遷移のメトリクス記録インターフェース。
type SessionEventRecorder interface {
	RecordSessionEvent(event string)
}

// Service はログイン・ログアウトのフローを制御する。
// ログイン成功時のみセッションを確立し、ログアウトは
// サーバー到達性に関わらずローカルセッションを破棄する。
type Service struct {
	client  Requester
	store   SessionWriter
	metrics SessionEventRecorder
	logger  *slog.Logger
}

// NewService はServiceを生成する。metricsはnil可。
func NewService(client Requester, store SessionWriter, metrics SessionEventRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:  client,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// loginRequest はログインエンドポイントへのリクエストボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse はログインエンドポイントのレスポンスボディ。
type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

// Login は資格情報を検証しセッションを確立する。
// 入力は前後の空白を除去してから検証する。いずれかが空の場合は
// リクエストを送らずローカルの検証エラーを返す。
// 失敗時（ネットワーク障害・資格情報エラーいずれも）はセッション状態を変更しない。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, model.NewValidationError("Bitte Benutzername und Passwort eingeben.")
	}

	// 1. 無認可モードでログインリクエストを発行
	raw, err := s.client.Do(ctx, http.MethodPost, "/api/auth/login", loginRequest{
		Username: username,
		Password: password,
	}, apiclient.AuthNone)
	if err != nil {
		// クライアント側で分類済み: ネットワーク障害はnetwork、
		// 無認可呼び出しの401はサーバー文言を保持した資格情報エラー
		return nil, err
	}

	// 2. レスポンスをデコードしセッションを構築
	var resp loginResponse
	if err := apiclient.DecodeInto(raw, &resp); err != nil {
		return nil, err
	}

	role := model.Role(resp.User.Role)
	if resp.Token == "" || !role.IsValid() {
		s.logger.Error("login response missing token or role",
			slog.String("username", username),
		)
		return nil, model.NewServerError(0, "")
	}

	sess := model.Session{
		Token:    resp.Token,
		Username: resp.User.Username,
		Role:     role,
	}

	// 3. セッションを確立
	s.store.Set(sess)
	if s.metrics != nil {
		s.metrics.RecordSessionEvent("login")
	}

	s.logger.Info("login succeeded",
		slog.String("username", sess.Username),
		slog.String("role", string(sess.Role)),
	)
	return &sess, nil
}

// Logout はセッションを破棄する。
// サーバーへの通知はベストエフォートであり、失敗してもローカルの
// セッション破棄は必ず実行される。エラーは返さない。
func (s *Service) Logout(ctx context.Context) {
	// 1. サーバー側セッションの破棄を試みる（失敗は無視）
	if _, err := s.client.Do(ctx, http.MethodPost, "/api/auth/logout", nil, apiclient.AuthBearer); err != nil {
		s.logger.Warn("server-side logout failed",
			slog.String("error", err.Error()),
		)
	}

	// 2. ローカルセッションを無条件に破棄
	s.store.Clear()
	if s.metrics != nil {
		s.metrics.RecordSessionEvent("logout")
	}

	s.logger.Info("logout completed")
}
