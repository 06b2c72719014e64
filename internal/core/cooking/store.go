package cooking

import (
	"context"
	"sync"

	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// Store 烹飪會話的持久化介面
type Store interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]*Session, error)
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore 記憶體會話儲存，存放副本以避免外部修改
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore 創建記憶體會話儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Save 寫入會話，已存在則覆蓋
func (s *MemoryStore) Save(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	common.LogDebug("會話已儲存",
		zap.String("session_id", session.ID),
		zap.String("recipe_id", session.RecipeID),
		zap.Stringer("state", session.State),
	)
	return nil
}

// Load 讀取會話
func (s *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	return &sess, nil
}

// Delete 刪除會話
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return common.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// ListActive 列出進行中的會話
func (s *MemoryStore) ListActive(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.Active() {
			copied := sess
			out = append(out, &copied)
		}
	}
	return out, nil
}
