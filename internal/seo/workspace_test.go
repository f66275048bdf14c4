package seo

import (
	"context"
	"testing"

	"github.com/hitoshi/seoconsole/internal/controller"
	"github.com/hitoshi/seoconsole/internal/model"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	fetch := func(ctx context.Context, id int) (*model.ResultDetail, error) {
		return &model.ResultDetail{
			ResultSummary: model.ResultSummary{ID: id, Domain: "example.de"},
		}, nil
	}
	detail := controller.NewDetailController(fetch, newTestLogger())
	return NewWorkspace(detail)
}

// TestWorkspace_SelectClosesManagement は詳細選択が管理ビューを閉じることを検証する。
func TestWorkspace_SelectClosesManagement(t *testing.T) {
	w := newTestWorkspace(t)

	w.OpenManagement()
	if !w.ManagementActive() {
		t.Fatal("OpenManagement後もManagementActive() = false")
	}

	if err := w.SelectResult(context.Background(), 1); err != nil {
		t.Fatalf("SelectResult がエラーを返した: %v", err)
	}

	if w.ManagementActive() {
		t.Error("詳細選択後も管理ビューがアクティブ")
	}
	if sel := w.Selection(); sel == nil || sel.ID != 1 {
		t.Errorf("Selection() = %+v, want ID=1", sel)
	}
}

// TestWorkspace_ManagementClearsSelection は管理ビューの表示が選択を破棄することを検証する。
func TestWorkspace_ManagementClearsSelection(t *testing.T) {
	w := newTestWorkspace(t)

	if err := w.SelectResult(context.Background(), 1); err != nil {
		t.Fatalf("SelectResult がエラーを返した: %v", err)
	}

	w.OpenManagement()

	if w.Selection() != nil {
		t.Error("管理ビュー表示後も選択が残っている")
	}
	if !w.ManagementActive() {
		t.Error("OpenManagement後もManagementActive() = false")
	}
}

// TestWorkspace_ClearSelection は選択の破棄を検証する。
func TestWorkspace_ClearSelection(t *testing.T) {
	w := newTestWorkspace(t)

	if err := w.SelectResult(context.Background(), 2); err != nil {
		t.Fatalf("SelectResult がエラーを返した: %v", err)
	}

	w.ClearSelection()

	if w.Selection() != nil {
		t.Error("ClearSelection後も選択が残っている")
	}
	if w.ManagementActive() {
		t.Error("ClearSelectionが管理ビューを開いた")
	}
}

// TestWorkspace_CloseManagement は管理ビューを閉じても選択が復活しないことを検証する。
func TestWorkspace_CloseManagement(t *testing.T) {
	w := newTestWorkspace(t)

	w.OpenManagement()
	w.CloseManagement()

	if w.ManagementActive() {
		t.Error("CloseManagement後もManagementActive() = true")
	}
	if w.Selection() != nil {
		t.Error("CloseManagementで選択が復活した")
	}
}
