// Package seo はSEO分析結果のリソース操作を提供する。
package seo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/seoconsole/internal/apiclient"
	"github.com/hitoshi/seoconsole/internal/controller"
	"github.com/hitoshi/seoconsole/internal/model"
)

// Requester はAPIリクエスト発行のインターフェース。
type Requester interface {
	Do(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error)
}

// Sanitizer は生成テキストのサニタイズインターフェース。
// security.TextSanitizerの部分集合として定義する。
type Sanitizer interface {
	SanitizeFormatted(text string) string
	SanitizePlain(text string) string
}

// Service はSEO分析結果の取得・作成・削除を提供する。
// 詳細の自由記述フィールドは生成パイプライン由来のため、
// プレゼンテーション層へ渡す前に必ずサニタイズする。
type Service struct {
	client    Requester
	sanitizer Sanitizer
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(client Requester, sanitizer Sanitizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:    client,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// resultSummaryPayload はリスト応答内の1件分のJSON表現。
type resultSummaryPayload struct {
	ID        int    `json:"id"`
	Domain    string `json:"domain"`
	CreatedAt string `json:"created_at"`
	Username  string `json:"username"`
}

// listResponse はリストエンドポイントの応答ボディ。
type listResponse struct {
	Results     []resultSummaryPayload `json:"results"`
	Total       int                    `json:"total"`
	Pages       int                    `json:"pages"`
	CurrentPage int                    `json:"current_page"`
	PerPage     int                    `json:"per_page"`
}

// resultDetailPayload は詳細エンドポイントの応答ボディ。
type resultDetailPayload struct {
	resultSummaryPayload
	ShortDescription string `json:"short_description"`
	LongDescription  string `json:"long_description"`
	Keywords         string `json:"keywords"`
	OpeningHours     string `json:"opening_hours"`
	CompanyInfo      string `json:"company_info"`
}

// List は分析結果の1ページ分を取得する。
// 検索語が空の場合、searchパラメータ自体を省略する
// （空文字列として送らない。サーバーの無フィルタ既定を適用させるため）。
// 並び順はサーバーの返却順をそのまま使い、クライアント側で再ソートしない。
func (s *Service) List(ctx context.Context, q controller.ListQuery) (model.Page[model.ResultSummary], error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	if q.Search != "" {
		params.Set("search", q.Search)
	}

	raw, err := s.client.Do(ctx, http.MethodGet, "/api/seo/results?"+params.Encode(), nil, apiclient.AuthBearer)
	if err != nil {
		return model.EmptyPage[model.ResultSummary](), err
	}

	var resp listResponse
	if err := apiclient.DecodeInto(raw, &resp); err != nil {
		return model.EmptyPage[model.ResultSummary](), err
	}

	items := make([]model.ResultSummary, 0, len(resp.Results))
	for _, r := range resp.Results {
		items = append(items, s.toSummary(r))
	}
	return model.NormalizePage(items, resp.CurrentPage, resp.Pages), nil
}

// Get は分析結果1件の詳細を取得する。
func (s *Service) Get(ctx context.Context, id int) (*model.ResultDetail, error) {
	raw, err := s.client.Do(ctx, http.MethodGet, fmt.Sprintf("/api/seo/results/%d", id), nil, apiclient.AuthBearer)
	if err != nil {
		return nil, err
	}

	var resp resultDetailPayload
	if err := apiclient.DecodeInto(raw, &resp); err != nil {
		return nil, err
	}
	return s.toDetail(resp), nil
}

// analyzeRequest は分析エンドポイントへのリクエストボディ。
type analyzeRequest struct {
	Domain string `json:"domain"`
}

// analyzeResponse は分析エンドポイントの応答ボディ。
type analyzeResponse struct {
	Message string              `json:"message"`
	Result  resultDetailPayload `json:"result"`
}

// Analyze は指定ドメインの分析を依頼し、生成された結果を返す。
// ドメインは送信前に正規化され、不正な形式はリクエストを発行せず
// ローカルの検証エラーを返す。
// 同一ドメインの再分析はサーバー側で既存結果の更新として扱われる。
func (s *Service) Analyze(ctx context.Context, domain string) (*model.ResultDetail, error) {
	normalized, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Do(ctx, http.MethodPost, "/api/seo/analyze", analyzeRequest{Domain: normalized}, apiclient.AuthBearer)
	if err != nil {
		return nil, err
	}

	var resp analyzeResponse
	if err := apiclient.DecodeInto(raw, &resp); err != nil {
		return nil, err
	}

	s.logger.Info("analysis completed",
		slog.String("domain", normalized),
		slog.Int("result_id", resp.Result.ID),
	)
	return s.toDetail(resp.Result), nil
}

// Delete は分析結果1件を削除する。
func (s *Service) Delete(ctx context.Context, id int) error {
	_, err := s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/seo/results/%d", id), nil, apiclient.AuthBearer)
	return err
}

// autocompleteResponse はドメイン補完エンドポイントの応答ボディ。
type autocompleteResponse struct {
	Domains []string `json:"domains"`
}

// Autocomplete は入力中のドメインに前方一致する既知ドメインの候補を返す。
// 入力が空の場合はリクエストを発行せず空の候補を返す。
func (s *Service) Autocomplete(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", prefix)

	raw, err := s.client.Do(ctx, http.MethodGet, "/api/seo/domains/autocomplete?"+params.Encode(), nil, apiclient.AuthBearer)
	if err != nil {
		return nil, err
	}

	var resp autocompleteResponse
	if err := apiclient.DecodeInto(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Domains, nil
}

// toSummary はJSON表現をドメインモデルへ変換する。
// パースできないタイムスタンプはゼロ値にフォールバックし、取得自体は失敗させない。
func (s *Service) toSummary(p resultSummaryPayload) model.ResultSummary {
	createdAt, err := model.ParseTimestamp(p.CreatedAt)
	if err != nil {
		s.logger.Warn("failed to parse result timestamp",
			slog.Int("id", p.ID),
			slog.String("created_at", p.CreatedAt),
		)
	}
	return model.ResultSummary{
		ID:        p.ID,
		Domain:    p.Domain,
		CreatedAt: createdAt,
		Username:  p.Username,
	}
}

// toDetail はJSON表現をサニタイズ済みのドメインモデルへ変換する。
func (s *Service) toDetail(p resultDetailPayload) *model.ResultDetail {
	return &model.ResultDetail{
		ResultSummary:    s.toSummary(p.resultSummaryPayload),
		ShortDescription: s.sanitizer.SanitizeFormatted(p.ShortDescription),
		LongDescription:  s.sanitizer.SanitizeFormatted(p.LongDescription),
		Keywords:         s.sanitizer.SanitizePlain(p.Keywords),
		OpeningHours:     s.sanitizer.SanitizePlain(p.OpeningHours),
		CompanyInfo:      s.sanitizer.SanitizeFormatted(p.CompanyInfo),
	}
}

// NormalizeDomain はユーザー入力のドメインを正規化する。
// 前後の空白を除去し、小文字化し、スキームプレフィックスと
// www.プレフィックス、パス部分を取り除く。
// 正規化後にドットを含まない、または空の場合は検証エラーを返す。
func NormalizeDomain(input string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(input))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimSuffix(d, ".")

	if d == "" || !strings.Contains(d, ".") || strings.ContainsAny(d, " \t") {
		return "", model.NewValidationError("Bitte eine gültige Domain eingeben (z. B. example.de).")
	}
	return d, nil
}
