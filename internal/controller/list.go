// Package controller はリスト・詳細・フォームの各画面を駆動する
// 汎用的な状態遷移機構を提供する。リソース型ごとにインスタンス化され、
// ページネーション、検索、選択、作成・更新・削除のフローを統一する。
package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/seoconsole/internal/model"
)

// ListQuery はリスト取得のクエリパラメータ。
// Searchが空文字列の場合、呼び出し先は検索パラメータ自体を省略する
// （空文字列として送らない）。
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
}

// Fetcher はリスト1ページ分を取得する関数。サービス層が実装を提供する。
type Fetcher[T any] func(ctx context.Context, q ListQuery) (model.Page[T], error)

// Deleter は項目1件を削除する関数。
type Deleter func(ctx context.Context, id int) error

// ListState はリストコントローラの観測可能な状態のスナップショット。
type ListState[T any] struct {
	Page       model.Page[T]
	SearchTerm string
	Loading    bool
	Err        *model.APIError
}

// ListController はページネーション・検索付きリスト取得の状態機械。
// すべてのメソッドは並行呼び出しに対して安全。
//
// 取得リクエストには単調増加のシーケンス番号が割り当てられ、
// 結果の適用時に最新番号と一致しないものは破棄される（last request wins）。
// これにより、検索やページ切り替えの連続操作で古いレスポンスが
// 新しい状態を上書きすることを防ぐ。
type ListController[T any] struct {
	mu      sync.Mutex
	fetch   Fetcher[T]
	deleter Deleter
	idOf    func(T) int
	logger  *slog.Logger

	// クエリ意図（次回取得に使う値）。状態のPageとは独立して保持し、
	// サーバー応答の解決時のみ状態へ反映する。
	page    int
	perPage int
	search  string

	seq     uint64
	loading bool
	err     *model.APIError
	current model.Page[T]
}

// NewListController はListControllerを生成する。
// idOfは項目からIDを取り出す関数で、削除時のローカル反映に使用する。
// deleterがnilの場合、Removeは常にエラーを返す。
func NewListController[T any](fetch Fetcher[T], deleter Deleter, idOf func(T) int, perPage int, logger *slog.Logger) *ListController[T] {
	if perPage < 1 {
		perPage = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListController[T]{
		fetch:   fetch,
		deleter: deleter,
		idOf:    idOf,
		logger:  logger,
		page:    1,
		perPage: perPage,
		current: model.EmptyPage[T](),
	}
}

// State は現在の状態のスナップショットを返す。
// Itemsスライスはコピーされ、呼び出し側の変更は内部に影響しない。
func (c *ListController[T]) State() ListState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	page := c.current
	page.Items = append([]T(nil), c.current.Items...)
	return ListState[T]{
		Page:       page,
		SearchTerm: c.search,
		Loading:    c.loading,
		Err:        c.err,
	}
}

// SetSearchTerm は検索語を設定し、1ページ目から再取得する。
// 検索語の変更は常にページ番号を1にリセットする。
func (c *ListController[T]) SetSearchTerm(ctx context.Context, term string) error {
	c.mu.Lock()
	c.search = term
	c.page = 1
	seq, q := c.beginFetchLocked()
	c.mu.Unlock()

	return c.resolve(ctx, seq, q)
}

// SetPage はページ番号を[1, totalPages]に切り詰めてから再取得する。
func (c *ListController[T]) SetPage(ctx context.Context, n int) error {
	c.mu.Lock()
	c.page = model.ClampPage(n, c.current.TotalPages)
	seq, q := c.beginFetchLocked()
	c.mu.Unlock()

	return c.resolve(ctx, seq, q)
}

// Refresh はページ番号・検索語を変えずに現在のクエリで再取得する。
// 他コントローラでの変更（作成・削除）後の再同期に使用する。
func (c *ListController[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	seq, q := c.beginFetchLocked()
	c.mu.Unlock()

	return c.resolve(ctx, seq, q)
}

// Remove は項目を削除する。confirmフックがfalseを返した場合は
// リクエストを発行せず何もしない。
// ローカル状態からの除去はサーバー側の削除成功後にのみ行い、
// その後Refreshでページネーションを再調整する
// （ページが空になった場合など）。削除失敗時はリストを変更しない。
func (c *ListController[T]) Remove(ctx context.Context, id int, confirm func() bool) error {
	if confirm != nil && !confirm() {
		return nil
	}
	if c.deleter == nil {
		return model.NewServerError(0, "")
	}

	// 1. サーバー側の削除を先に実行
	if err := c.deleter(ctx, id); err != nil {
		apiErr := model.AsAPIError(err)
		c.mu.Lock()
		c.err = apiErr
		c.mu.Unlock()
		c.logger.Warn("delete failed",
			slog.Int("id", id),
			slog.String("error", apiErr.Error()),
		)
		return apiErr
	}

	// 2. 成功後にローカルページから除去
	c.mu.Lock()
	items := c.current.Items[:0:0]
	for _, item := range c.current.Items {
		if c.idOf(item) != id {
			items = append(items, item)
		}
	}
	c.current.Items = items
	c.mu.Unlock()

	c.logger.Info("item deleted", slog.Int("id", id))

	// 3. 再取得でページネーションを再調整
	return c.Refresh(ctx)
}

// beginFetchLocked は新しい取得のシーケンス番号を発行し、
// loading状態に遷移する。呼び出し側がロックを保持していること。
func (c *ListController[T]) beginFetchLocked() (uint64, ListQuery) {
	c.seq++
	c.loading = true
	return c.seq, ListQuery{
		Page:    c.page,
		PerPage: c.perPage,
		Search:  c.search,
	}
}

// resolve は取得を実行し、最新シーケンスの場合のみ結果を状態へ反映する。
// 取得中に新しいリクエストが発行されていた場合、この結果は破棄される。
func (c *ListController[T]) resolve(ctx context.Context, seq uint64, q ListQuery) error {
	page, err := c.fetch(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		// 後続リクエストに追い越された結果は適用しない
		c.logger.Debug("discarding superseded fetch result",
			slog.Int("page", q.Page),
		)
		return nil
	}

	c.loading = false
	if err != nil {
		c.err = model.AsAPIError(err)
		return c.err
	}

	c.err = nil
	c.current = model.NormalizePage(page.Items, page.CurrentPage, page.TotalPages)
	c.page = c.current.CurrentPage
	return nil
}
