// Package session はログインセッションの保持と永続化を提供する。
// Storeがセッションの唯一の所有者であり、他のコンポーネントは
// アクセサ経由の読み取りのみ許可される。
package session

import (
	"log/slog"
	"sync"

	"github.com/hitoshi/seoconsole/internal/model"
)

// Store は現在のセッションを排他的に所有する。
// すべてのメソッドは並行呼び出しに対して安全。
// トークンはResource Clientの全リクエストから読み取られるが、
// 書き込みはStoreのみが行う。
type Store struct {
	mu        sync.RWMutex
	current   *model.Session
	persister Persister
	logger    *slog.Logger
}

// NewStore はStoreを生成する。
// persisterがnilの場合は永続化しない（プロセス内のみ保持）。
func NewStore(persister Persister, logger *slog.Logger) *Store {
	if persister == nil {
		persister = NoopPersister{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		persister: persister,
		logger:    logger,
	}
}

// Restore は永続化されたセッションを起動時に読み込む。
// 永続化データが存在しない場合は何もしない（エラーにしない）。
func (s *Store) Restore() error {
	sess, err := s.persister.Load()
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.logger.Info("session restored",
		slog.String("username", sess.Username),
		slog.String("role", string(sess.Role)),
	)
	return nil
}

// Set はログイン成功時にセッションを保存し永続化する。
func (s *Store) Set(sess model.Session) {
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	if err := s.persister.Save(&sess); err != nil {
		s.logger.Error("failed to persist session",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("session established",
		slog.String("username", sess.Username),
		slog.String("role", string(sess.Role)),
	)
}

// Clear はセッションを無条件に破棄する。冪等。
// ログアウトおよびトークン失効（任意のAPI呼び出しの401）の両方で使用される。
func (s *Store) Clear() {
	s.mu.Lock()
	hadSession := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if err := s.persister.Delete(); err != nil {
		s.logger.Error("failed to delete persisted session",
			slog.String("error", err.Error()),
		)
	}

	if hadSession {
		s.logger.Info("session cleared")
	}
}

// Current は現在のセッションのコピーを返す。未ログイン時はnil。
func (s *Store) Current() *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// Token は認可ヘッダー付与用のトークンを返す。
// 2番目の戻り値はトークンが存在するかを示す。
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil || s.current.Token == "" {
		return "", false
	}
	return s.current.Token, true
}

// IsPrivileged は現在のセッションが管理者権限を持つかを返す。
// UI表示のゲーティング専用（サーバーが独立して認可する）。
func (s *Store) IsPrivileged() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.IsPrivileged()
}
