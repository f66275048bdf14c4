package seo

import (
	"context"
	"sync"

	"github.com/hitoshi/seoconsole/internal/controller"
	"github.com/hitoshi/seoconsole/internal/model"
)

// Workspace はSEOタブ内の表示状態を調停する。
// 「結果詳細の選択」と「ユーザー管理ビュー」は同時に1つしか
// アクティブにならない。一方をアクティブにすると他方は解除される。
type Workspace struct {
	mu         sync.Mutex
	detail     *controller.DetailController[model.ResultDetail]
	management bool
}

// NewWorkspace はWorkspaceを生成する。
func NewWorkspace(detail *controller.DetailController[model.ResultDetail]) *Workspace {
	return &Workspace{detail: detail}
}

// SelectResult は結果詳細を選択する。管理ビューが開いていれば閉じる。
// 取得失敗時は直前の選択が保持される（DetailControllerのふるまいに従う）。
func (w *Workspace) SelectResult(ctx context.Context, id int) error {
	w.mu.Lock()
	w.management = false
	w.mu.Unlock()

	return w.detail.Select(ctx, id)
}

// ClearSelection は選択を無条件に破棄する。
// 選択中の結果が削除された場合やタブ遷移時に使用する。
func (w *Workspace) ClearSelection() {
	w.detail.Clear()
}

// OpenManagement は管理ビューを開く。選択中の詳細は破棄される。
func (w *Workspace) OpenManagement() {
	w.mu.Lock()
	w.management = true
	w.mu.Unlock()

	w.detail.Clear()
}

// CloseManagement は管理ビューを閉じる。
func (w *Workspace) CloseManagement() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.management = false
}

// ManagementActive は管理ビューがアクティブかを返す。
func (w *Workspace) ManagementActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.management
}

// Selection は現在選択中の結果詳細を返す。未選択時はnil。
func (w *Workspace) Selection() *model.ResultDetail {
	return w.detail.Current()
}
