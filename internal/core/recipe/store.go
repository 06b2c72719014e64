package recipe

import (
	"context"
	"sync"
	"time"

	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const snapshotKey = "snapshot"

// Store 快取不可變的食譜快照，支援手動失效與依時間失效
type Store struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	snap      *Snapshot
	expiresAt time.Time
	lastErr   error
	gen       uint64

	group singleflight.Group
}

// NewStore 創建資料集存放區，ttl 為 0 時只會在 Invalidate 後重新載入
func NewStore(source Source, ttl time.Duration) *Store {
	return &Store{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Snapshot 取得目前的快照，必要時重新載入
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.cached(); snap != nil {
		return snap, nil
	}

	// 同時間的多個載入請求合併為一次；使用不會被取消的 context，避免第一個呼叫者取消時影響其他等待者
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(snapshotKey, func() (any, error) {
		if snap := s.cached(); snap != nil {
			return snap, nil
		}
		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()

		start := s.now()
		snap, err := s.source.Load(loadCtx)
		s.mu.Lock()
		defer s.mu.Unlock()
		// 載入期間被 Invalidate 時不寫回
		if s.gen != gen {
			common.LogDebug("資料集載入期間已失效，結果不快取")
			if err != nil {
				return nil, err
			}
			return snap, nil
		}
		if err != nil {
			s.lastErr = err
			return nil, err
		}
		s.snap = snap
		s.lastErr = nil
		if s.ttl > 0 {
			s.expiresAt = s.now().Add(s.ttl)
		}
		common.LogDebug("資料集快照已更新",
			zap.Int("recipes", snap.Len()),
			zap.Duration("耗時", s.now().Sub(start)),
		)
		return snap, nil
	})
	if err != nil {
		common.LogError("資料集無法載入", zap.Error(err))
		return nil, err
	}
	if shared {
		common.LogDebug("共用進行中的資料集載入")
	}
	return v.(*Snapshot), nil
}

// cached 回傳尚未過期的快照
func (s *Store) cached() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	if s.ttl > 0 && !s.now().Before(s.expiresAt) {
		return nil
	}
	return s.snap
}

// Invalidate 讓目前的快照失效，下一次存取時重新載入
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.snap = nil
	s.expiresAt = time.Time{}
	s.gen++
	s.mu.Unlock()
	s.group.Forget(snapshotKey)
	common.LogInfo("資料集快照已失效")
}

// Reload 立即重新載入資料集
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.Invalidate()
	return s.Snapshot(ctx)
}

// Status 回傳目前快照（可能為 nil）與最近一次載入錯誤，不會觸發載入
func (s *Store) Status() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.lastErr
}
