package history

import (
	"context"
	"sync"
	"time"

	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// Log 最近紀錄與收藏，所有修改以同一把鎖序列化
type Log struct {
	store LogStore
	mu    sync.Mutex
	now   func() time.Time
}

// NewLog 創建互動紀錄
func NewLog(store LogStore) *Log {
	return &Log{store: store, now: time.Now}
}

// RecordCompletion 附加一筆最近紀錄
func (l *Log) RecordCompletion(ctx context.Context, r recipe.Recipe, rating *int) error {
	if err := ValidateRating(rating); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Append(ctx, KindRecent, NewEntry(r, l.now(), rating)); err != nil {
		common.LogError("無法寫入最近紀錄", zap.String("recipe_id", r.ID), zap.Error(err))
		return common.Wrap(common.ErrSaveFailed, err)
	}
	common.LogInfo("已寫入最近紀錄", zap.String("recipe_id", r.ID))
	return nil
}

// IsFavorite 是否已收藏
func (l *Log) IsFavorite(ctx context.Context, recipeID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	favorites, err := l.scan(ctx, KindFavorite)
	if err != nil {
		return false, err
	}
	return indexOf(favorites, recipeID) >= 0, nil
}

// AddFavorite 加入收藏，已存在時不重複加入，回傳是否有新增
func (l *Log) AddFavorite(ctx context.Context, r recipe.Recipe) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.addFavorite(ctx, r)
}

// RemoveFavorite 移除收藏，回傳是否有移除
func (l *Log) RemoveFavorite(ctx context.Context, recipeID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.removeFavorite(ctx, recipeID)
}

// ToggleFavorite 切換收藏狀態，回傳切換後是否為收藏
func (l *Log) ToggleFavorite(ctx context.Context, r recipe.Recipe) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed, err := l.removeFavorite(ctx, r.ID)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}
	if _, err := l.addFavorite(ctx, r); err != nil {
		return false, err
	}
	return true, nil
}

// Favorites 依加入順序列出收藏
func (l *Log) Favorites(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.scan(ctx, KindFavorite)
}

// Recents 由新到舊列出最近紀錄，limit <= 0 表示全部
func (l *Log) Recents(ctx context.Context, limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.scan(ctx, KindRecent)
	if err != nil {
		return nil, err
	}
	n := len(entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// Summary 統計最近紀錄與收藏
func (l *Log) Summary(ctx context.Context) (Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	recents, err := l.scan(ctx, KindRecent)
	if err != nil {
		return Summary{}, err
	}
	favorites, err := l.scan(ctx, KindFavorite)
	if err != nil {
		return Summary{}, err
	}
	s := Summarize(recents)
	s.Favorites = len(favorites)
	return s, nil
}

func (l *Log) scan(ctx context.Context, kind Kind) ([]Entry, error) {
	entries, err := l.store.ScanAll(ctx, kind)
	if err != nil {
		common.LogError("無法讀取紀錄", zap.String("kind", string(kind)), zap.Error(err))
		return nil, common.Wrap(common.ErrServiceUnavailable, err)
	}
	return entries, nil
}

func (l *Log) addFavorite(ctx context.Context, r recipe.Recipe) (bool, error) {
	favorites, err := l.scan(ctx, KindFavorite)
	if err != nil {
		return false, err
	}
	if indexOf(favorites, r.ID) >= 0 {
		return false, nil
	}
	if err := l.store.Append(ctx, KindFavorite, NewEntry(r, l.now(), nil)); err != nil {
		common.LogError("無法寫入收藏", zap.String("recipe_id", r.ID), zap.Error(err))
		return false, common.Wrap(common.ErrSaveFailed, err)
	}
	common.LogInfo("已加入收藏", zap.String("recipe_id", r.ID))
	return true, nil
}

// removeFavorite 讀取全部收藏、過濾後整批重寫
func (l *Log) removeFavorite(ctx context.Context, recipeID string) (bool, error) {
	favorites, err := l.scan(ctx, KindFavorite)
	if err != nil {
		return false, err
	}
	kept := make([]Entry, 0, len(favorites))
	for _, e := range favorites {
		if e.RecipeID != recipeID {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(favorites) {
		return false, nil
	}
	if err := l.store.RewriteAll(ctx, KindFavorite, kept); err != nil {
		common.LogError("無法移除收藏", zap.String("recipe_id", recipeID), zap.Error(err))
		return false, common.Wrap(common.ErrSaveFailed, err)
	}
	common.LogInfo("已移除收藏", zap.String("recipe_id", recipeID))
	return true, nil
}

func indexOf(entries []Entry, recipeID string) int {
	for i, e := range entries {
		if e.RecipeID == recipeID {
			return i
		}
	}
	return -1
}
