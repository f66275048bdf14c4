package seo

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/hitoshi/seoconsole/internal/apiclient"
	"github.com/hitoshi/seoconsole/internal/controller"
	"github.com/hitoshi/seoconsole/internal/model"
)

// requesterMock はRequesterのモック実装。
type requesterMock struct {
	doFunc func(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error)
}

func (m *requesterMock) Do(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error) {
	return m.doFunc(ctx, method, path, body, mode)
}

// sanitizerMock はサニタイズの適用を追跡できるモック実装。
type sanitizerMock struct{}

func (sanitizerMock) SanitizeFormatted(text string) string { return "F:" + text }
func (sanitizerMock) SanitizePlain(text string) string     { return "P:" + text }

// passthroughSanitizer は入力をそのまま返すモック実装。
type passthroughSanitizer struct{}

func (passthroughSanitizer) SanitizeFormatted(text string) string { return text }
func (passthroughSanitizer) SanitizePlain(text string) string     { return text }

func newTestLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil))
}

// TestList_QueryParameters はページ・件数パラメータの送信と
// 空検索語の省略を検証する。
func TestList_QueryParameters(t *testing.T) {
	var gotPath string
	client := &requesterMock{
		doFunc: func(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error) {
			gotPath = path
			return json.RawMessage(`{"results":[],"total":0,"pages":1,"current_page":1,"per_page":10}`), nil
		},
	}
	s := NewService(client, passthroughSanitizer{}, newTestLogger())

	// 検索語なし: searchパラメータ自体を省略する
	if _, err := s.List(context.Background(), controller.ListQuery{Page: 2, PerPage: 10}); err != nil {
		t.Fatalf("List がエラーを返した: %v", err)
	}
	if !strings.Contains(gotPath, "page=2") || !strings.Contains(gotPath, "per_page=10") {
		t.Errorf("path = %q, ページパラメータが欠落", gotPath)
	}
	if strings.Contains(gotPath, "search") {
		t.Errorf("path = %q, 空検索語でsearchパラメータが送信された", gotPath)
	}

	// 検索語あり
	if _, err := s.List(context.Background(), controller.ListQuery{Page: 1, PerPage: 10, Search: "example.de"}); err != nil {
		t.Fatalf("List がエラーを返した: %v", err)
	}
	if !strings.Contains(gotPath, "search=example.de") {
		t.Errorf("path = %q, searchパラメータが欠落", gotPath)
	}
}

// TestList_MapsPayload は応答のマッピングとページ正規化を検証する。
func TestList_MapsPayload(t *testing.T) {
	client := &requesterMock{
		doFunc: func(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error) {
			return json.RawMessage(`{
				"results":[{"id":3,"domain":"example.de","created_at":"2026-08-30T10:00:00","username":"admin"}],
				"total":11,"pages":2,"current_page":2,"per_page":10
			}`), nil
		},
	}
	s := NewService(client, passthroughSanitizer{}, newTestLogger())

	page, err := s.List(context.Background(), controller.ListQuery{Page: 2, PerPage: 10})
	if err != nil {
		t.Fatalf("List がエラーを返した: %v", err)
	}

	if len(page.Items) != 1 {
		t.Fatalf("Items数 = %d, want 1", len(page.Items))
	}
	item := page.Items[0]
	if item.ID != 3 || item.Domain != "example.de" || item.Username != "admin" {
		t.Errorf("item = %+v", item)
	}
	if item.CreatedAt.IsZero() {
		t.Error("created_atがパースされていない")
	}
	if page.CurrentPage != 2 || page.TotalPages != 2 {
		t.Errorf("page = %d/%d, want 2/2", page.CurrentPage, page.TotalPages)
	}
}

// TestList_UnparseableTimestampFallsBack はパース不能なcreated_atが
// ゼロ値にフォールバックし、取得自体は成功することを検証する。
func TestList_UnparseableTimestampFallsBack(t *testing.T) {
	client := &requesterMock{
		doFunc: func(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error) {
			return json.RawMessage(`{
				"results":[{"id":3,"domain":"example.de","created_at":"kein-datum","username":"admin"}],
				"total":1,"pages":1,"current_page":1,"per_page":10
			}`), nil
		},
	}
	s := NewService(client, passthroughSanitizer{}, newTestLogger())

	page, err := s.List(context.Background(), controller.ListQuery{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("List がエラーを返した: %v", err)
	}

	if len(page.Items) != 1 {
		t.Fatalf("Items数 = %d, want 1", len(page.Items))
	}
	if !page.Items[0].CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %v, want ゼロ値へのフォールバック", page.Items[0].CreatedAt)
	}
}

// TestGet_SanitizesDetailFields は詳細の自由記述フィールドが
// サニタイズされることを検証する。
func TestGet_SanitizesDetailFields(t *testing.T) {
	client := &requesterMock{
		doFunc: func(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error) {
			if path != "/api/seo/results/7" {
				t.Errorf("path = %q, want /api/seo/results/7", path)
			}
			return json.RawMessage(`{
				"id":7,"domain":"example.de","created_at":"2026-08-30T10:00:00","username":"admin",
				"short_description":"kurz","long_description":"lang",
				"keywords":"k1, k2","opening_hours":"Mo-Fr","company_info":"info"
			}`), nil
		},
	}
	s := NewService(client, sanitizerMock{}, newTestLogger())

	detail, err := s.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get がエラーを返した: %v", err)
	}

	if detail.ShortDescription != "F:kurz" || detail.LongDescription != "F:lang" {
		t.Errorf("説明文に整形サニタイズが適用されていない: %+v", detail)
	}
	if detail.Keywords != "P:k1, k2" || detail.OpeningHours != "P:Mo-Fr" {
		t.Errorf("単一行フィールドにプレーンサニタイズが適用されていない: %+v", detail)
	}
}

// TestAnalyze_NormalizesDomain は送信前のドメイン正規化を検証する。
func TestAnalyze_NormalizesDomain(t *testing.T) {
	var gotBody any
	client := &requesterMock{
		doFunc: func(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error) {
			gotBody = body
			return json.RawMessage(`{"message":"ok","result":{"id":1,"domain":"example.de","created_at":"","username":"admin"}}`), nil
		},
	}
	s := NewService(client, passthroughSanitizer{}, newTestLogger())

	result, err := s.Analyze(context.Background(), "  https://www.Example.de/pfad?x=1 ")
	if err != nil {
		t.Fatalf("Analyze がエラーを返した: %v", err)
	}

	req, ok := gotBody.(analyzeRequest)
	if !ok {
		t.Fatalf("リクエストボディの型が想定外: %T", gotBody)
	}
	if req.Domain != "example.de" {
		t.Errorf("送信ドメイン = %q, want %q", req.Domain, "example.de")
	}
	if result.ID != 1 {
		t.Errorf("result = %+v", result)
	}
}

// TestAnalyze_InvalidDomain は不正ドメインでリクエストを送らないことを検証する。
func TestAnalyze_InvalidDomain(t *testing.T) {
	called := false
	client := &requesterMock{
		doFunc: func(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error) {
			called = true
			return nil, nil
		},
	}
	s := NewService(client, passthroughSanitizer{}, newTestLogger())

	_, err := s.Analyze(context.Background(), "nur-text")

	if !model.IsCategory(err, model.CategoryValidation) {
		t.Errorf("不正ドメインがvalidationエラーにならない: %v", err)
	}
	if called {
		t.Error("不正ドメインでリクエストが発行された")
	}
}

// TestDelete_Path は削除リクエストのメソッドとパスを検証する。
func TestDelete_Path(t *testing.T) {
	var gotMethod, gotPath string
	client := &requesterMock{
		doFunc: func(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error) {
			gotMethod = method
			gotPath = path
			return json.RawMessage(`{}`), nil
		},
	}
	s := NewService(client, passthroughSanitizer{}, newTestLogger())

	if err := s.Delete(context.Background(), 9); err != nil {
		t.Fatalf("Delete がエラーを返した: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/seo/results/9" {
		t.Errorf("リクエスト = %s %s, want DELETE /api/seo/results/9", gotMethod, gotPath)
	}
}

// TestAutocomplete_EmptyPrefix は空入力でリクエストを送らないことを検証する。
func TestAutocomplete_EmptyPrefix(t *testing.T) {
	called := false
	client := &requesterMock{
		doFunc: func(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error) {
			called = true
			return nil, nil
		},
	}
	s := NewService(client, passthroughSanitizer{}, newTestLogger())

	domains, err := s.Autocomplete(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Autocomplete がエラーを返した: %v", err)
	}
	if domains != nil {
		t.Errorf("空入力で候補が返った: %v", domains)
	}
	if called {
		t.Error("空入力でリクエストが発行された")
	}
}

// TestAutocomplete_ReturnsDomains は候補リストが返ることを検証する。
func TestAutocomplete_ReturnsDomains(t *testing.T) {
	client := &requesterMock{
		doFunc: func(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error) {
			if !strings.Contains(path, "q=exam") {
				t.Errorf("path = %q, qパラメータが欠落", path)
			}
			return json.RawMessage(`{"domains":["example.de","example.com"]}`), nil
		},
	}
	s := NewService(client, passthroughSanitizer{}, newTestLogger())

	domains, err := s.Autocomplete(context.Background(), "exam")
	if err != nil {
		t.Fatalf("Autocomplete がエラーを返した: %v", err)
	}
	if len(domains) != 2 || domains[0] != "example.de" {
		t.Errorf("domains = %v", domains)
	}
}

// TestNormalizeDomain はドメイン正規化の各ケースを検証する。
func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"素のドメイン", "example.de", "example.de", false},
		{"大文字", "EXAMPLE.DE", "example.de", false},
		{"httpsスキーム", "https://example.de", "example.de", false},
		{"httpスキーム", "http://example.de", "example.de", false},
		{"wwwプレフィックス", "www.example.de", "example.de", false},
		{"パス付き", "https://www.example.de/kontakt", "example.de", false},
		{"クエリ付き", "example.de?utm=1", "example.de", false},
		{"前後空白", "  example.de  ", "example.de", false},
		{"末尾ドット", "example.de.", "example.de", false},
		{"サブドメイン", "shop.example.de", "shop.example.de", false},
		{"空入力", "", "", true},
		{"ドットなし", "example", "", true},
		{"空白のみ", "   ", "", true},
		{"スキームのみ", "https://", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDomain(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NormalizeDomain(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeDomain(%q) がエラーを返した: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
