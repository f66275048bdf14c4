// Package app はコンソールコア全体の依存関係をワイヤリングする。
// プレゼンテーション層はAppの公開フィールドを通じてのみコアを操作する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/seoconsole/internal/apiclient"
	"github.com/hitoshi/seoconsole/internal/auth"
	"github.com/hitoshi/seoconsole/internal/config"
	"github.com/hitoshi/seoconsole/internal/controller"
	"github.com/hitoshi/seoconsole/internal/images"
	"github.com/hitoshi/seoconsole/internal/logger"
	"github.com/hitoshi/seoconsole/internal/metrics"
	"github.com/hitoshi/seoconsole/internal/model"
	"github.com/hitoshi/seoconsole/internal/security"
	"github.com/hitoshi/seoconsole/internal/seo"
	"github.com/hitoshi/seoconsole/internal/session"
	"github.com/hitoshi/seoconsole/internal/users"
)

// Init はアプリケーションの初期化を行う。
// .envファイルがあれば読み込み、JSON構造化ログをセットアップし、
// 環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの読み込み（存在しない場合は無視）
	_ = godotenv.Load()

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// AnalyzeFields はSEO分析フォームのフィールド集合。
type AnalyzeFields struct {
	Domain string
}

// ImageFields は画像生成フォームのフィールド集合。
type ImageFields struct {
	UserInput string
	ImageType model.ImageType
}

// App はコンソールコアの全コンポーネントを保持する。
// プレゼンテーション層が読むフィールドはすべて並行アクセスに安全な
// コントローラまたはサービスである。
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry

	Sessions *session.Store
	Client   *apiclient.Client
	Auth     *auth.Service

	SEO    *seo.Service
	Images *images.Service
	Users  *users.Service

	Results      *controller.ListController[model.ResultSummary]
	ImageHistory *controller.ListController[model.ImageRecord]
	UserList     *controller.ListController[model.UserAccount]

	Workspace   *seo.Workspace
	AnalyzeForm *controller.FormController[AnalyzeFields, model.ResultDetail]
	ImageForm   *controller.FormController[ImageFields, model.ImageRecord]
	UserForm    *controller.FormController[users.Fields, model.UserAccount]
}

// New は全依存関係をワイヤリングしてAppを構築する。
// 永続化されたセッションがあれば復元する。
func New(cfg *config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. セッションストア
	var persister session.Persister
	if cfg.SessionFile != "" {
		persister = session.NewFilePersister(cfg.SessionFile)
	}
	store := session.NewStore(persister, log)
	if err := store.Restore(); err != nil {
		log.Warn("failed to restore persisted session",
			slog.String("error", err.Error()),
		)
	}

	// 3. APIクライアント。認証済み呼び出しの401はセッション失効として扱う。
	onUnauthorized := func() {
		store.Clear()
		collector.RecordSessionEvent("invalidated")
	}
	client := apiclient.New(apiclient.Config{
		BaseURL:            cfg.BaseURL,
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitBurst:     cfg.RateLimitBurst,
	}, store, onUnauthorized, collector, log)

	// 4. ドメインサービス
	authService := auth.NewService(client, store, collector, log)
	sanitizer := security.NewTextSanitizer()
	seoService := seo.NewService(client, sanitizer, log)
	imageService := images.NewService(client, security.NewDownloadGuard(), images.DownloadConfig{
		Timeout: cfg.DownloadTimeout,
		MaxSize: cfg.DownloadMaxSize,
	}, log)
	userService := users.NewService(client, log)

	a := &App{
		Config:   cfg,
		Logger:   log,
		Registry: registry,
		Sessions: store,
		Client:   client,
		Auth:     authService,
		SEO:      seoService,
		Images:   imageService,
		Users:    userService,
	}

	// 5. リストコントローラ
	a.Results = controller.NewListController(
		seoService.List,
		a.deleteResult,
		func(r model.ResultSummary) int { return r.ID },
		cfg.PerPage, log,
	)
	a.ImageHistory = controller.NewListController(
		imageService.History,
		imageService.Delete,
		func(r model.ImageRecord) int { return r.ID },
		cfg.PerPage, log,
	)
	a.UserList = controller.NewListController(
		userService.List,
		userService.Delete,
		func(u model.UserAccount) int { return u.ID },
		cfg.PerPage, log,
	)

	// 6. 選択状態
	detail := controller.NewDetailController(seoService.Get, log)
	a.Workspace = seo.NewWorkspace(detail)

	// 7. フォームコントローラ
	a.AnalyzeForm = controller.NewFormController(controller.FormHooks[AnalyzeFields, model.ResultDetail]{
		Create: func(ctx context.Context, f AnalyzeFields) (*model.ResultDetail, error) {
			return seoService.Analyze(ctx, f.Domain)
		},
		OnComplete: func(ctx context.Context, result *model.ResultDetail) {
			// 分析完了後: リストを再同期し、新しい結果を選択状態にする
			_ = a.Results.Refresh(ctx)
			if result != nil {
				_ = a.Workspace.SelectResult(ctx, result.ID)
			}
		},
	}, log)

	a.ImageForm = controller.NewFormController(controller.FormHooks[ImageFields, model.ImageRecord]{
		Create: func(ctx context.Context, f ImageFields) (*model.ImageRecord, error) {
			return imageService.Generate(ctx, f.UserInput, f.ImageType)
		},
		OnComplete: func(ctx context.Context, result *model.ImageRecord) {
			_ = a.ImageHistory.Refresh(ctx)
		},
	}, log)

	a.UserForm = controller.NewFormController(controller.FormHooks[users.Fields, model.UserAccount]{
		Validate: userService.ValidateFields,
		Create:   userService.Create,
		Update:   userService.Update,
		OnComplete: func(ctx context.Context, result *model.UserAccount) {
			_ = a.UserList.Refresh(ctx)
		},
	}, log)

	return a
}

// deleteResult は分析結果を削除し、削除対象が選択中だった場合は選択を破棄する。
func (a *App) deleteResult(ctx context.Context, id int) error {
	if err := a.SEO.Delete(ctx, id); err != nil {
		return err
	}
	if sel := a.Workspace.Selection(); sel != nil && sel.ID == id {
		a.Workspace.ClearSelection()
	}
	return nil
}
