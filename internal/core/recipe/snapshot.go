package recipe

import (
	"time"

	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// Snapshot 某一時間點的食譜資料集，建立後唯讀，可在多個請求間共享
type Snapshot struct {
	recipes  []Recipe
	byID     map[string]int
	source   string
	loadedAt time.Time
}

// NewSnapshot 建立快照，重複的 id 只保留第一筆
func NewSnapshot(recipes []Recipe, source string, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		recipes:  make([]Recipe, 0, len(recipes)),
		byID:     make(map[string]int, len(recipes)),
		source:   source,
		loadedAt: loadedAt,
	}
	for _, r := range recipes {
		if _, dup := s.byID[r.ID]; dup {
			common.LogWarn("重複的食譜 id，已略過",
				zap.String("id", r.ID),
				zap.String("title", r.Title),
			)
			continue
		}
		if r.Norm.Title == "" && r.Title != "" {
			r.Prepare()
		}
		s.byID[r.ID] = len(s.recipes)
		s.recipes = append(s.recipes, r)
	}
	return s
}

// Len 食譜數量
func (s *Snapshot) Len() int {
	return len(s.recipes)
}

// Recipes 依來源順序回傳所有食譜的副本
func (s *Snapshot) Recipes() []Recipe {
	out := make([]Recipe, len(s.recipes))
	copy(out, s.recipes)
	return out
}

// Get 依 id 取得食譜
func (s *Snapshot) Get(id string) (Recipe, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return Recipe{}, false
	}
	return s.recipes[idx], true
}

// Source 資料來源
func (s *Snapshot) Source() string {
	return s.source
}

// LoadedAt 載入時間
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}
