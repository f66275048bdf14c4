package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/seoconsole/internal/model"
)

// tokenSourceMock はTokenSourceのモック実装。
type tokenSourceMock struct {
	token string
	ok    bool
}

func (m *tokenSourceMock) Token() (string, bool) {
	return m.token, m.ok
}

func newTestClient(baseURL string, tokens TokenSource, onUnauthorized func()) *Client {
	if tokens == nil {
		tokens = &tokenSourceMock{}
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return New(Config{BaseURL: baseURL, RequestTimeout: 5 * time.Second}, tokens, onUnauthorized, nil, logger)
}

// TestClient_Do_Success は2xxレスポンスで生のボディが返ることを検証する。
func TestClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil, nil)

	raw, err := client.Do(context.Background(), http.MethodGet, "/api/test", nil, AuthNone)
	if err != nil {
		t.Fatalf("Do がエラーを返した: %v", err)
	}

	var result struct {
		Message string `json:"message"`
	}
	if err := DecodeInto(raw, &result); err != nil {
		t.Fatalf("DecodeInto がエラーを返した: %v", err)
	}
	if result.Message != "ok" {
		t.Errorf("message = %q, want %q", result.Message, "ok")
	}
}

// TestClient_Do_RequestHeaders は標準ヘッダーの付与を検証する。
func TestClient_Do_RequestHeaders(t *testing.T) {
	var gotAuth, gotContentType, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tokens := &tokenSourceMock{token: "tok-1", ok: true}
	client := newTestClient(server.URL, tokens, nil)

	body := map[string]string{"domain": "example.de"}
	if _, err := client.Do(context.Background(), http.MethodPost, "/api/test", body, AuthBearer); err != nil {
		t.Fatalf("Do がエラーを返した: %v", err)
	}

	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-1")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want %q", gotContentType, "application/json")
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID が付与されていない")
	}
}

// TestClient_Do_BearerWithoutToken はトークン不在時にヘッダーを省略することを検証する。
func TestClient_Do_BearerWithoutToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, &tokenSourceMock{ok: false}, nil)

	if _, err := client.Do(context.Background(), http.MethodGet, "/api/test", nil, AuthBearer); err != nil {
		t.Fatalf("Do がエラーを返した: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("トークン不在時にAuthorizationが付与された: %q", gotAuth)
	}
}

// TestClient_Do_Unauthorized_TriggersInvalidation は認証済み呼び出しの401で
// 失効フックが呼ばれることを検証する。
func TestClient_Do_Unauthorized_TriggersInvalidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"token expired"}`))
	}))
	defer server.Close()

	invalidated := false
	client := newTestClient(server.URL, &tokenSourceMock{token: "old", ok: true}, func() {
		invalidated = true
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/api/test", nil, AuthBearer)
	if err == nil {
		t.Fatal("401でエラーが返らなかった")
	}

	apiErr := model.AsAPIError(err)
	if apiErr.Category != model.CategoryAuth {
		t.Errorf("Category = %q, want %q", apiErr.Category, model.CategoryAuth)
	}
	if !invalidated {
		t.Error("401で失効フックが呼ばれなかった")
	}
}

// TestClient_Do_Unauthorized_LoginNotInvalidated は無認可呼び出し（ログイン試行）の
// 401が失効フックを呼ばないことを検証する。
func TestClient_Do_Unauthorized_LoginNotInvalidated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid credentials"}`))
	}))
	defer server.Close()

	invalidated := false
	client := newTestClient(server.URL, nil, func() {
		invalidated = true
	})

	_, err := client.Do(context.Background(), http.MethodPost, "/api/auth/login", map[string]string{}, AuthNone)
	if err == nil {
		t.Fatal("401でエラーが返らなかった")
	}
	if invalidated {
		t.Error("無認可呼び出しの401で失効フックが呼ばれた")
	}
}

// TestClient_Do_Unauthorized_ServerMessagePreserved は無認可呼び出しの401で
// サーバー提供のerror文言が資格情報エラーとして保持されることを検証する。
func TestClient_Do_Unauthorized_ServerMessagePreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Konto gesperrt. Bitte wenden Sie sich an den Administrator."}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil, nil)

	_, err := client.Do(context.Background(), http.MethodPost, "/api/auth/login", map[string]string{}, AuthNone)
	if err == nil {
		t.Fatal("401でエラーが返らなかった")
	}

	apiErr := model.AsAPIError(err)
	if apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
	}
	if apiErr.Message != "Konto gesperrt. Bitte wenden Sie sich an den Administrator." {
		t.Errorf("Message = %q, サーバー文言が保持されていない", apiErr.Message)
	}
}

// TestClient_Do_ServerErrorMessage はサーバー提供のerrorフィールドが優先されることを検証する。
func TestClient_Do_ServerErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Benutzername existiert bereits."}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil, nil)

	_, err := client.Do(context.Background(), http.MethodPost, "/api/users", map[string]string{}, AuthBearer)
	if err == nil {
		t.Fatal("400でエラーが返らなかった")
	}

	apiErr := model.AsAPIError(err)
	if apiErr.Category != model.CategoryValidation {
		t.Errorf("Category = %q, want %q", apiErr.Category, model.CategoryValidation)
	}
	if apiErr.Message != "Benutzername existiert bereits." {
		t.Errorf("Message = %q, サーバー文言が優先されていない", apiErr.Message)
	}
}

// TestClient_Do_ErrorBodyNotJSON はエラーボディがJSONでない場合に
// 汎用文言へフォールバックすることを検証する。
func TestClient_Do_ErrorBodyNotJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>Internal Server Error</html>`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil, nil)

	_, err := client.Do(context.Background(), http.MethodGet, "/api/test", nil, AuthBearer)
	if err == nil {
		t.Fatal("500でエラーが返らなかった")
	}

	apiErr := model.AsAPIError(err)
	if apiErr.Category != model.CategoryServer {
		t.Errorf("Category = %q, want %q", apiErr.Category, model.CategoryServer)
	}
	if apiErr.Message == "" {
		t.Error("フォールバック文言が空")
	}
}

// TestClient_Do_NotFound は404がnot_foundカテゴリに分類されることを検証する。
func TestClient_Do_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Result not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil, nil)

	_, err := client.Do(context.Background(), http.MethodGet, "/api/seo/results/999", nil, AuthBearer)

	if !model.IsCategory(err, model.CategoryNotFound) {
		t.Errorf("404がnot_foundに分類されていない: %v", err)
	}
}

// TestClient_Do_NetworkFailure は到達不能ホストでnetworkカテゴリが返ることを検証する。
func TestClient_Do_NetworkFailure(t *testing.T) {
	// 即座にクローズしたサーバーのURLを使い接続失敗を誘発する
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(url, nil, nil)

	_, err := client.Do(context.Background(), http.MethodGet, "/api/test", nil, AuthNone)

	if !model.IsCategory(err, model.CategoryNetwork) {
		t.Errorf("接続失敗がnetworkに分類されていない: %v", err)
	}
}

// TestClient_Do_Timeout はタイムアウト超過がnetworkカテゴリに分類されることを検証する。
func TestClient_Do_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	client := New(Config{BaseURL: server.URL, RequestTimeout: 50 * time.Millisecond}, &tokenSourceMock{}, nil, nil, logger)

	_, err := client.Do(context.Background(), http.MethodGet, "/api/test", nil, AuthNone)

	if !model.IsCategory(err, model.CategoryNetwork) {
		t.Errorf("タイムアウトがnetworkに分類されていない: %v", err)
	}
}

// TestDecodeInto_InvalidJSON はデコード失敗がserverカテゴリになることを検証する。
func TestDecodeInto_InvalidJSON(t *testing.T) {
	var out struct{ X int }
	err := DecodeInto(json.RawMessage(`{invalid`), &out)

	if !model.IsCategory(err, model.CategoryServer) {
		t.Errorf("デコード失敗がserverに分類されていない: %v", err)
	}
}
