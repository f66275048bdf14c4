// Package apiclient は認証付きHTTP+JSONリクエストの共有抽象（Resource Client）を提供する。
// すべてのドメイン操作はこのクライアントの上に構築される。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/seoconsole/internal/model"
)

// maxResponseSize はレスポンスボディの最大読み取りサイズ。
const maxResponseSize = 5 * 1024 * 1024

// userAgent は全リクエストに付与するUser-Agentヘッダー。
const userAgent = "seoconsole/1.0"

// AuthMode はリクエストの認可トランスポートを表す。
// 原典はbearerヘッダーとCookieの2方式を混在させていたが、
// 本実装では全エンドポイントをbearerに統一している。
// Ambientモードは契約上サポートされ、Cookieベースのバックエンドに
// 切り替える場合に呼び出し単位で指定できる。
type AuthMode int

const (
	// AuthBearer はAuthorization: Bearerヘッダーでトークンを送る。
	AuthBearer AuthMode = iota
	// AuthAmbient はCookieジャーによる環境保持型の資格情報を使う。
	AuthAmbient
	// AuthNone は認可情報を付与しない（ログイン等）。
	AuthNone
)

// TokenSource は認可トークンの読み取りインターフェース。
// session.Storeの部分集合として定義する。
type TokenSource interface {
	Token() (string, bool)
}

// MetricsRecorder はリクエスト結果のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordRequest(method string, status int)
	RecordRequestLatency(d time.Duration)
	RecordNetworkFailure(method string)
}

// Config はClientの構築パラメータ。
type Config struct {
	BaseURL            string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Client は認証付きHTTP+JSONリクエストを発行し、型付きの成功/失敗結果を返す。
// 公開境界を越えてpanicを送出せず、すべての失敗経路を*model.APIErrorで表現する。
// 認証済み呼び出しの401はセッション失効シグナルとして扱い、
// onUnauthorizedフックで強制ログアウトを伝播する。
type Client struct {
	httpClient     *http.Client
	ambientClient  *http.Client
	baseURL        string
	timeout        time.Duration
	tokens         TokenSource
	onUnauthorized func()
	limiter        *rate.Limiter
	metrics        MetricsRecorder
	logger         *slog.Logger
}

// New はClientを生成する。
// tokensは認可ヘッダー付与のためのトークン読み取り元。
// onUnauthorizedは認証済み呼び出しが401を返した際に1回呼ばれる
// （nilの場合は伝播しない）。
func New(cfg Config, tokens TokenSource, onUnauthorized func(), metrics MetricsRecorder, logger *slog.Logger) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 120
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Ambientモード用のCookieジャー付きクライアント。
	// cookiejar.Newはnilオプションでエラーを返さない。
	jar, _ := cookiejar.New(nil)

	return &Client{
		httpClient:     &http.Client{},
		ambientClient:  &http.Client{Jar: jar},
		baseURL:        cfg.BaseURL,
		timeout:        cfg.RequestTimeout,
		tokens:         tokens,
		onUnauthorized: onUnauthorized,
		limiter:        rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMinute)/60.0), cfg.RateLimitBurst),
		metrics:        metrics,
		logger:         logger,
	}
}

// Do はHTTPリクエストを発行し、2xxの場合はパース前のボディを返す。
// 非2xxは*model.APIErrorに分類して返す（serverのerrorフィールドを優先、
// 欠落時は汎用文言にフォールバック）。トランスポート障害はnetworkカテゴリ。
// リクエストは1回のみ試行する（自動リトライなし。再試行は明示的な
// ユーザー操作によってのみ行われる）。
func (c *Client) Do(ctx context.Context, method, path string, body any, mode AuthMode) (json.RawMessage, error) {
	// アウトバウンドのレート制限（サーバー保護）
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, model.NewNetworkError()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// リクエストボディのJSONシリアライズ
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.logger.Error("failed to encode request body",
				slog.String("method", method),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return nil, model.NewServerError(0, "")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, model.NewServerError(0, "")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// 認可トランスポートの選択
	httpClient := c.httpClient
	switch mode {
	case AuthBearer:
		// トークンが存在する場合のみ付与する（欠落時は無認可で送る）
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	case AuthAmbient:
		httpClient = c.ambientClient
	case AuthNone:
		// 認可情報なし
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("HTTP request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		if c.metrics != nil {
			c.metrics.RecordNetworkFailure(method)
		}
		return nil, model.NewNetworkError()
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordRequest(method, resp.StatusCode)
		c.metrics.RecordRequestLatency(duration)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("failed to read response body",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, model.NewNetworkError()
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Info("request completed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		return respBody, nil
	}

	apiErr := c.classifyError(resp.StatusCode, respBody, mode)

	// 認証済み呼び出しの401はセッション失効シグナル。
	// 無認可呼び出し（ログイン試行等）の401は資格情報エラーであり、伝播しない。
	if resp.StatusCode == http.StatusUnauthorized && mode != AuthNone && c.onUnauthorized != nil {
		c.logger.Warn("session invalidated by server",
			slog.String("method", method),
			slog.String("path", path),
		)
		c.onUnauthorized()
	}

	c.logger.Warn("request returned error status",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("http_status", resp.StatusCode),
		slog.String("code", apiErr.Code),
	)
	return nil, apiErr
}

// errorBody はサーバーエラーレスポンスの統一フォーマット。
type errorBody struct {
	Error string `json:"error"`
}

// classifyError はHTTPステータスとレスポンスボディを*model.APIErrorに分類する。
// サーバー提供のerrorフィールドを優先し、欠落時は汎用文言にフォールバックする。
// 401は呼び出しモードで分類が分かれる: 無認可呼び出し（ログイン試行）は
// 資格情報エラー、認証済み呼び出しはセッション失効。
func (c *Client) classifyError(status int, body []byte, mode AuthMode) *model.APIError {
	var parsed errorBody
	// パース失敗は無視してフォールバック文言に任せる
	_ = json.Unmarshal(body, &parsed)
	message := parsed.Error

	switch {
	case status == http.StatusUnauthorized:
		if mode == AuthNone {
			return model.NewInvalidCredentialsError(message)
		}
		return model.NewAuthRequiredError(message)
	case status == http.StatusNotFound:
		return model.NewNotFoundError(message)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if message == "" {
			return model.NewServerError(status, "")
		}
		return &model.APIError{
			Status:   status,
			Code:     model.ErrCodeValidation,
			Message:  message,
			Category: model.CategoryValidation,
		}
	default:
		return model.NewServerError(status, message)
	}
}

// DecodeInto はDoの戻り値を型付き構造体にデコードする補助関数。
// デコード失敗はserverカテゴリのAPIErrorとして返す。
func DecodeInto(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return model.NewServerError(0, fmt.Sprintf("Unerwartetes Antwortformat des Servers (%v).", err))
	}
	return nil
}
