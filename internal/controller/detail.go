package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/seoconsole/internal/model"
)

// DetailFetcher は項目1件の詳細を取得する関数。
type DetailFetcher[T any] func(ctx context.Context, id int) (*T, error)

// DetailController は「現在表示中の項目」の選択状態を管理する。
// すべてのメソッドは並行呼び出しに対して安全。
//
// Selectの失敗は直前の選択を保持したままエラーを返す。
// 表示中の項目が別セッションで削除されていた場合（not_found）でも
// リスト側の状態を壊さないためのふるまいである。
type DetailController[T any] struct {
	mu     sync.Mutex
	fetch  DetailFetcher[T]
	logger *slog.Logger

	seq     uint64
	loading bool
	err     *model.APIError
	current *T
}

// NewDetailController はDetailControllerを生成する。
func NewDetailController[T any](fetch DetailFetcher[T], logger *slog.Logger) *DetailController[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailController[T]{
		fetch:  fetch,
		logger: logger,
	}
}

// Select は指定IDの詳細を取得し、成功時のみ選択を置き換える。
// 失敗時は直前の選択を保持したままエラーを返す。
// 取得中に新しいSelectまたはClearが行われた場合、結果は破棄される。
func (c *DetailController[T]) Select(ctx context.Context, id int) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.loading = true
	c.mu.Unlock()

	detail, err := c.fetch(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		return nil
	}

	c.loading = false
	if err != nil {
		c.err = model.AsAPIError(err)
		c.logger.Warn("detail fetch failed",
			slog.Int("id", id),
			slog.String("error", c.err.Error()),
		)
		return c.err
	}

	c.err = nil
	c.current = detail
	return nil
}

// Clear は選択を無条件に破棄する。
// 進行中のSelectがあればその結果も破棄される。
func (c *DetailController[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.current = nil
	c.loading = false
	c.err = nil
}

// Current は現在の選択のコピーを返す。未選択時はnil。
func (c *DetailController[T]) Current() *T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil
	}
	copied := *c.current
	return &copied
}

// Loading は詳細取得が進行中かを返す。
func (c *DetailController[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err は直近の取得エラーを返す。成功後はnilに戻る。
func (c *DetailController[T]) Err() *model.APIError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
