// Package images はAI生成画像のリソース操作を提供する。
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/seoconsole/internal/apiclient"
	"github.com/hitoshi/seoconsole/internal/controller"
	"github.com/hitoshi/seoconsole/internal/model"
)

// Requester はAPIリクエスト発行のインターフェース。
type Requester interface {
	Do(ctx context.Context, method, path string, body any, mode apiclient.AuthMode) (json.RawMessage, error)
}

// Guard は画像URLの検証とSSRF防止クライアント生成のインターフェース。
// security.DownloadGuardの部分集合として定義する。
type Guard interface {
	ValidateImageURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// DownloadConfig は画像ダウンロードの制限値。
type DownloadConfig struct {
	Timeout time.Duration
	MaxSize int64
}

// Service は画像の生成・履歴取得・削除・ダウンロードを提供する。
type Service struct {
	client         Requester
	guard          Guard
	downloadClient *http.Client
	maxSize        int64
	logger         *slog.Logger
}

// NewService はServiceを生成する。
func NewService(client Requester, guard Guard, cfg DownloadConfig, logger *slog.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10 * 1024 * 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:         client,
		guard:          guard,
		downloadClient: guard.NewSafeClient(cfg.Timeout),
		maxSize:        cfg.MaxSize,
		logger:         logger,
	}
}

// imagePayload は画像1件のJSON表現。
type imagePayload struct {
	ID        int    `json:"id"`
	ImageURL  string `json:"image_url"`
	ImageType string `json:"image_type"`
	ImageSize string `json:"image_size"`
	UserInput string `json:"user_input"`
	CreatedAt string `json:"created_at"`
}

// generateRequest は生成エンドポイントへのリクエストボディ。
type generateRequest struct {
	UserInput string `json:"user_input"`
	ImageType string `json:"image_type"`
}

// generateResponse は生成エンドポイントの応答ボディ。
type generateResponse struct {
	Success bool         `json:"success"`
	Image   imagePayload `json:"image"`
}

// Generate は説明文と画像種別から画像を生成する。
// 説明文が空、または画像種別が不正な場合はリクエストを発行せず
// ローカルの検証エラーを返す。
func (s *Service) Generate(ctx context.Context, userInput string, imageType model.ImageType) (*model.ImageRecord, error) {
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return nil, model.NewValidationError("Bitte eine Bildbeschreibung eingeben.")
	}
	if !imageType.IsValid() {
		return nil, model.NewValidationError("Unbekannter Bildtyp.")
	}

	raw, err := s.client.Do(ctx, http.MethodPost, "/api/images/generate", generateRequest{
		UserInput: userInput,
		ImageType: string(imageType),
	}, apiclient.AuthBearer)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := apiclient.DecodeInto(raw, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, model.NewServerError(0, "")
	}

	record := s.toRecord(resp.Image)
	s.logger.Info("image generated",
		slog.Int("image_id", record.ID),
		slog.String("image_type", string(record.ImageType)),
	)
	return &record, nil
}

// historyResponse は履歴エンドポイントの応答ボディ。
type historyResponse struct {
	Images      []imagePayload `json:"images"`
	Total       int            `json:"total"`
	Pages       int            `json:"pages"`
	CurrentPage int            `json:"current_page"`
	PerPage     int            `json:"per_page"`
}

// History は生成履歴の1ページ分を取得する。
// 履歴に検索機能はないため、クエリの検索語は無視される。
func (s *Service) History(ctx context.Context, q controller.ListQuery) (model.Page[model.ImageRecord], error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))

	raw, err := s.client.Do(ctx, http.MethodGet, "/api/images/history?"+params.Encode(), nil, apiclient.AuthBearer)
	if err != nil {
		return model.EmptyPage[model.ImageRecord](), err
	}

	var resp historyResponse
	if err := apiclient.DecodeInto(raw, &resp); err != nil {
		return model.EmptyPage[model.ImageRecord](), err
	}

	items := make([]model.ImageRecord, 0, len(resp.Images))
	for _, p := range resp.Images {
		items = append(items, s.toRecord(p))
	}
	return model.NormalizePage(items, resp.CurrentPage, resp.Pages), nil
}

// Delete は画像1件を削除する。
func (s *Service) Delete(ctx context.Context, id int) error {
	_, err := s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/images/delete/%d", id), nil, apiclient.AuthBearer)
	return err
}

// Download は生成画像の本体を取得する。
// URLは取得前に検証され、SSRF防止クライアント経由でダウンロードされる。
// サイズ上限を超えるレスポンスはエラーになる。
func (s *Service) Download(ctx context.Context, record model.ImageRecord) ([]byte, error) {
	if err := s.guard.ValidateImageURL(record.ImageURL); err != nil {
		s.logger.Warn("image URL rejected",
			slog.Int("image_id", record.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewValidationError("Die Bild-URL ist ungültig.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, record.ImageURL, nil)
	if err != nil {
		return nil, model.NewValidationError("Die Bild-URL ist ungültig.")
	}

	resp, err := s.downloadClient.Do(req)
	if err != nil {
		return nil, model.NewNetworkError()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewServerError(resp.StatusCode, "Das Bild konnte nicht geladen werden.")
	}

	// 上限+1バイト読み、超過を検出する
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return nil, model.NewNetworkError()
	}
	if int64(len(data)) > s.maxSize {
		return nil, model.NewServerError(0, "Das Bild überschreitet die maximale Dateigröße.")
	}
	return data, nil
}

// toRecord はJSON表現をドメインモデルへ変換する。
// パースできないタイムスタンプはゼロ値にフォールバックし、取得自体は失敗させない。
func (s *Service) toRecord(p imagePayload) model.ImageRecord {
	createdAt, err := model.ParseTimestamp(p.CreatedAt)
	if err != nil {
		s.logger.Warn("failed to parse image timestamp",
			slog.Int("id", p.ID),
			slog.String("created_at", p.CreatedAt),
		)
	}
	return model.ImageRecord{
		ID:        p.ID,
		ImageURL:  p.ImageURL,
		ImageType: model.ImageType(p.ImageType),
		ImageSize: p.ImageSize,
		UserInput: p.UserInput,
		CreatedAt: createdAt,
	}
}
