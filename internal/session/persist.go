package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hitoshi/seoconsole/internal/model"
)

// Persister はセッションの永続化インターフェース。
// ブラウザのセッションストレージに相当する役割を、組み込み先の
// 実行環境に合わせて差し替え可能にする。
type Persister interface {
	// Load は永続化されたセッションを読み込む。
	// 永続化データが存在しない場合は(nil, nil)を返す。
	Load() (*model.Session, error)
	// Save はセッションを永続化する。
	Save(sess *model.Session) error
	// Delete は永続化データを削除する。存在しない場合もエラーにしない。
	Delete() error
}

// persistedSession はファイルに保存するセッションのJSON表現。
type persistedSession struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// FilePersister はセッションをJSONファイルに永続化する。
// ファイルは所有者のみ読み書き可能なパーミッションで作成される。
type FilePersister struct {
	path string
}

// NewFilePersister はFilePersisterを生成する。
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load は永続化されたセッションをファイルから読み込む。
// ファイルが存在しない場合は(nil, nil)を返す。
// ロール値が不正な場合は破損データとして破棄する。
func (p *FilePersister) Load() (*model.Session, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var stored persistedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	role := model.Role(stored.Role)
	if stored.Token == "" || !role.IsValid() {
		// 破損または旧フォーマットのデータは無視する
		return nil, nil
	}

	return &model.Session{
		Token:    stored.Token,
		Username: stored.Username,
		Role:     role,
	}, nil
}

// Save はセッションをファイルに書き込む。
func (p *FilePersister) Save(sess *model.Session) error {
	data, err := json.Marshal(persistedSession{
		Token:    sess.Token,
		Username: sess.Username,
		Role:     string(sess.Role),
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	if err := os.WriteFile(p.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Delete はセッションファイルを削除する。
func (p *FilePersister) Delete() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// NoopPersister は永続化を行わないPersister実装。
// セッションをプロセス内のみで保持する場合に使用する。
type NoopPersister struct{}

// Load は常に(nil, nil)を返す。
func (NoopPersister) Load() (*model.Session, error) { return nil, nil }

// Save は何もしない。
func (NoopPersister) Save(*model.Session) error { return nil }

// Delete は何もしない。
func (NoopPersister) Delete() error { return nil }
