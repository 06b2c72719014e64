package search

import (
	"context"

	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/pkg/common"
)

// SnapshotProvider 提供目前的食譜快照
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*recipe.Snapshot, error)
}

// Options 搜尋服務設定
type Options struct {
	CriteriaLimit int
	Ingredient    IngredientOptions
	NameLimit     int
	NameWeights   NameWeights
}

// DefaultOptions 預設設定
func DefaultOptions() Options {
	return Options{
		CriteriaLimit: DefaultCriteriaLimit,
		Ingredient:    DefaultIngredientOptions(),
		NameLimit:     DefaultNameLimit,
		NameWeights:   DefaultNameWeights(),
	}
}

// Service 對話層使用的搜尋入口
type Service struct {
	snapshots SnapshotProvider
	opts      Options
}

// NewService 創建搜尋服務
func NewService(snapshots SnapshotProvider, opts Options) *Service {
	return &Service{snapshots: snapshots, opts: opts}
}

// ByCriteria 依條件搜尋，回傳結果與解析後的條件
func (s *Service) ByCriteria(ctx context.Context, c Criteria) ([]recipe.Recipe, Plan, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, Plan{}, err
	}
	plan := ParsePlan(c)
	return FilterPlan(snap, plan, s.opts.CriteriaLimit), plan, nil
}

// ByIngredients 依食材搜尋，policy 與 limit 為零值時使用預設設定
func (s *Service) ByIngredients(ctx context.Context, inputs []string, policy Policy, limit int) (IngredientResult, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return IngredientResult{}, err
	}
	opts := s.opts.Ingredient
	if policy != "" {
		opts.Policy = policy
	}
	if limit > 0 {
		opts.Limit = limit
	}
	return MatchIngredients(snap, inputs, opts)
}

// ByName 依菜名搜尋
func (s *Service) ByName(ctx context.Context, query string) ([]NameMatch, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return MatchName(snap, query, s.opts.NameWeights, s.opts.NameLimit)
}

// Get 依 id 取得食譜
func (s *Service) Get(ctx context.Context, id string) (recipe.Recipe, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return recipe.Recipe{}, err
	}
	r, ok := snap.Get(id)
	if !ok {
		return recipe.Recipe{}, common.ErrRecipeNotFound
	}
	return r, nil
}

// SelectFrom 從一組 id 中依使用者輸入的編號選出食譜
func (s *Service) SelectFrom(ctx context.Context, ids []string, choice string) (recipe.Recipe, int, error) {
	index, _ := ParseSelection(choice)
	id, err := Select(ids, index)
	if err != nil {
		return recipe.Recipe{}, index, err
	}
	r, err := s.Get(ctx, id)
	return r, index, err
}
