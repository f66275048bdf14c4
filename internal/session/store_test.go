package session

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/hitoshi/seoconsole/internal/model"
)

func newTestLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil))
}

// TestStore_SetAndAccessors はセッション保存後の各アクセサを検証する。
func TestStore_SetAndAccessors(t *testing.T) {
	store := NewStore(nil, newTestLogger())

	store.Set(model.Session{Token: "tok-1", Username: "admin", Role: model.RoleAdmin})

	token, ok := store.Token()
	if !ok || token != "tok-1" {
		t.Errorf("Token() = (%q, %v), want (\"tok-1\", true)", token, ok)
	}
	if !store.IsPrivileged() {
		t.Error("adminロールでIsPrivileged() = false")
	}

	current := store.Current()
	if current == nil || current.Username != "admin" {
		t.Fatalf("Current() = %+v, want admin session", current)
	}
}

// TestStore_CurrentReturnsCopy はCurrentの戻り値を変更しても内部状態が汚染されないことを検証する。
func TestStore_CurrentReturnsCopy(t *testing.T) {
	store := NewStore(nil, newTestLogger())
	store.Set(model.Session{Token: "tok-1", Username: "alice", Role: model.RoleUser})

	current := store.Current()
	current.Token = "tampered"

	token, _ := store.Token()
	if token != "tok-1" {
		t.Errorf("Token() = %q, コピーへの変更が内部に反映された", token)
	}
}

// TestStore_Clear_Idempotent はClearが冪等であることを検証する。
func TestStore_Clear_Idempotent(t *testing.T) {
	store := NewStore(nil, newTestLogger())
	store.Set(model.Session{Token: "tok-1", Username: "alice", Role: model.RoleUser})

	store.Clear()
	store.Clear() // 2回目もpanicしない

	if _, ok := store.Token(); ok {
		t.Error("Clear後もトークンが残っている")
	}
	if store.Current() != nil {
		t.Error("Clear後もCurrent()が非nil")
	}
	if store.IsPrivileged() {
		t.Error("Clear後もIsPrivileged() = true")
	}
}

// TestStore_IsPrivileged_UserRole は一般ユーザーが特権なしと判定されることを検証する。
func TestStore_IsPrivileged_UserRole(t *testing.T) {
	store := NewStore(nil, newTestLogger())
	store.Set(model.Session{Token: "tok-1", Username: "bob", Role: model.RoleUser})

	if store.IsPrivileged() {
		t.Error("userロールでIsPrivileged() = true")
	}
}

// TestStore_FilePersistence はファイル永続化と起動時復元のラウンドトリップを検証する。
func TestStore_FilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	persister := NewFilePersister(path)

	store := NewStore(persister, newTestLogger())
	store.Set(model.Session{Token: "tok-9", Username: "admin", Role: model.RoleAdmin})

	// 別プロセスの起動を模擬して新しいStoreで復元
	restored := NewStore(NewFilePersister(path), newTestLogger())
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore がエラーを返した: %v", err)
	}

	token, ok := restored.Token()
	if !ok || token != "tok-9" {
		t.Errorf("復元後のToken() = (%q, %v), want (\"tok-9\", true)", token, ok)
	}
	if !restored.IsPrivileged() {
		t.Error("復元後のロールが失われた")
	}
}

// TestStore_ClearRemovesPersistedFile はClearが永続化ファイルも削除することを検証する。
func TestStore_ClearRemovesPersistedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	store := NewStore(NewFilePersister(path), newTestLogger())
	store.Set(model.Session{Token: "tok-9", Username: "admin", Role: model.RoleAdmin})
	store.Clear()

	restored := NewStore(NewFilePersister(path), newTestLogger())
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore がエラーを返した: %v", err)
	}
	if restored.Current() != nil {
		t.Error("Clear後もセッションが復元された")
	}
}

// TestFilePersister_MissingFile はファイル不在時に(nil, nil)を返すことを検証する。
func TestFilePersister_MissingFile(t *testing.T) {
	persister := NewFilePersister(filepath.Join(t.TempDir(), "nothing.json"))

	sess, err := persister.Load()
	if err != nil {
		t.Fatalf("ファイル不在でエラーが返った: %v", err)
	}
	if sess != nil {
		t.Errorf("ファイル不在でセッションが返った: %+v", sess)
	}
}

// TestFilePersister_CorruptRole はロール値が不正な永続化データを破棄することを検証する。
func TestFilePersister_CorruptRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	persister := NewFilePersister(path)

	if err := persister.Save(&model.Session{Token: "tok", Username: "x", Role: model.Role("root")}); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}

	sess, err := persister.Load()
	if err != nil {
		t.Fatalf("Load がエラーを返した: %v", err)
	}
	if sess != nil {
		t.Errorf("不正ロールのデータが復元された: %+v", sess)
	}
}
