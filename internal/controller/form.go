package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/seoconsole/internal/model"
)

// FormMode はフォームの動作モードを表す。
type FormMode int

const (
	// ModeCreate は新規作成フォーム。
	ModeCreate FormMode = iota
	// ModeEdit は既存項目の編集フォーム。
	ModeEdit
)

// FormHooks はフォーム送信の実装をサービス層から注入する。
// Fはフォームのフィールド集合、Tは送信成功時に返る項目の型。
type FormHooks[F, T any] struct {
	// Validate は送信前のローカル検証。nilの場合は検証なし。
	// モードごとに異なる規則（作成時はパスワード必須等）を実装する。
	Validate func(mode FormMode, fields F) error
	// Create は新規作成リクエストを発行する。
	Create func(ctx context.Context, fields F) (*T, error)
	// Update は更新リクエストを発行する。
	Update func(ctx context.Context, id int, fields F) (*T, error)
	// OnComplete は送信成功後に呼ばれる。所有側リストのRefreshに使用する。
	// nil可。
	OnComplete func(ctx context.Context, result *T)
}

// FormState はフォームコントローラの観測可能な状態のスナップショット。
type FormState[F any] struct {
	Mode       FormMode
	TargetID   int
	Fields     F
	Open       bool
	Submitting bool
	Err        *model.APIError
}

// FormController は作成・更新の送信フローを制御する状態機械。
// すべてのメソッドは並行呼び出しに対して安全。
//
// 送信成功時はフィールドを初期化しフォームを閉じる。
// 送信失敗時はフィールドを保持し、ユーザーが修正して再送信できるようにする。
type FormController[F, T any] struct {
	mu     sync.Mutex
	hooks  FormHooks[F, T]
	logger *slog.Logger

	mode       FormMode
	targetID   int
	fields     F
	open       bool
	submitting bool
	err        *model.APIError
}

// NewFormController はFormControllerを生成する。
func NewFormController[F, T any](hooks FormHooks[F, T], logger *slog.Logger) *FormController[F, T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormController[F, T]{
		hooks:  hooks,
		logger: logger,
	}
}

// State は現在の状態のスナップショットを返す。
func (c *FormController[F, T]) State() FormState[F] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return FormState[F]{
		Mode:       c.mode,
		TargetID:   c.targetID,
		Fields:     c.fields,
		Open:       c.open,
		Submitting: c.submitting,
		Err:        c.err,
	}
}

// Begin は新規作成モードでフォームを開く。フィールドはゼロ値に初期化される。
func (c *FormController[F, T]) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero F
	c.mode = ModeCreate
	c.targetID = 0
	c.fields = zero
	c.open = true
	c.err = nil
}

// BeginEdit は編集モードでフォームを開き、既存項目の値をプリフィルする。
func (c *FormController[F, T]) BeginEdit(id int, prefill F) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = ModeEdit
	c.targetID = id
	c.fields = prefill
	c.open = true
	c.err = nil
}

// SetFields はユーザー入力をフィールドへ反映する。
func (c *FormController[F, T]) SetFields(fields F) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields = fields
}

// Cancel はフォームを閉じ、フィールドとエラーを破棄する。
func (c *FormController[F, T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero F
	c.fields = zero
	c.open = false
	c.submitting = false
	c.err = nil
}

// Submit は現在のモードに応じて作成または更新を送信する。
// ローカル検証に失敗した場合、リクエストは発行されない。
// 成功時: フィールドを初期化し、フォームを閉じ、OnCompleteを呼ぶ。
// 失敗時: フィールドを保持し、エラーを状態へ記録して返す。
func (c *FormController[F, T]) Submit(ctx context.Context) (*T, error) {
	c.mu.Lock()
	mode := c.mode
	targetID := c.targetID
	fields := c.fields

	// 1. ローカル検証（リクエスト発行前）
	if c.hooks.Validate != nil {
		if err := c.hooks.Validate(mode, fields); err != nil {
			c.err = model.AsAPIError(err)
			c.mu.Unlock()
			return nil, c.err
		}
	}
	c.submitting = true
	c.err = nil
	c.mu.Unlock()

	// 2. リクエスト発行
	var result *T
	var err error
	if mode == ModeEdit {
		result, err = c.hooks.Update(ctx, targetID, fields)
	} else {
		result, err = c.hooks.Create(ctx, fields)
	}

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		// フィールドは保持する（修正して再送信できるように）
		c.err = model.AsAPIError(err)
		c.mu.Unlock()
		c.logger.Warn("form submission failed",
			slog.Int("mode", int(mode)),
			slog.String("error", err.Error()),
		)
		return nil, model.AsAPIError(err)
	}

	// 3. 成功: フォームを初期化して閉じる
	var zero F
	c.fields = zero
	c.open = false
	c.err = nil
	c.mu.Unlock()

	if c.hooks.OnComplete != nil {
		c.hooks.OnComplete(ctx, result)
	}
	return result, nil
}
