package search

import (
	"sort"
	"strings"

	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/pkg/common"
	"recipe-assistant/internal/pkg/normalize"

	"go.uber.org/zap"
)

// DefaultCriteriaLimit 條件搜尋預設回傳筆數
const DefaultCriteriaLimit = 5

// stage 篩選管線中的一個步驟
type stage struct {
	name string
	keep func(r *recipe.Recipe) bool
}

// stages 依固定順序建立有效的篩選步驟，未指定的條件不會產生步驟
func (p Plan) stages() []stage {
	var out []stage

	switch {
	case p.Category != "":
		out = append(out, stage{"category", func(r *recipe.Recipe) bool {
			return r.Category == p.Category
		}})
	case p.CategoryText != "":
		out = append(out, stage{"category", func(r *recipe.Recipe) bool {
			return strings.Contains(r.Norm.Category, p.CategoryText)
		}})
	}

	switch {
	case p.Difficulty != "":
		out = append(out, stage{"difficulty", func(r *recipe.Recipe) bool {
			return difficultyMatches(p.Difficulty, r.Difficulty)
		}})
	case p.DifficultyText != "":
		out = append(out, stage{"difficulty", func(r *recipe.Recipe) bool {
			return strings.Contains(normalize.Fold(r.DifficultyText), p.DifficultyText)
		}})
	}

	if p.Duration != nil {
		band := *p.Duration
		out = append(out, stage{"duration", func(r *recipe.Recipe) bool {
			return r.DurationMinutes != nil && band.Contains(*r.DurationMinutes)
		}})
	}

	if p.Dietary != "" {
		out = append(out, stage{"dietary", func(r *recipe.Recipe) bool {
			for _, tag := range r.Norm.Dietary {
				if strings.Contains(tag, p.Dietary) {
					return true
				}
			}
			return false
		}})
	}

	if len(p.Avoid) > 0 {
		out = append(out, stage{"avoid", func(r *recipe.Recipe) bool {
			for _, tok := range p.Avoid {
				if strings.Contains(r.Norm.Ingredients, tok) {
					return false
				}
			}
			return true
		}})
	}

	if p.Calories != "" {
		band := p.Calories.Band()
		out = append(out, stage{"calories", func(r *recipe.Recipe) bool {
			return r.Calories != nil && band.Contains(*r.Calories)
		}})
	}

	return out
}

// difficultyMatches "easy" 也包含 "very-easy"
func difficultyMatches(want, got recipe.Difficulty) bool {
	if want == recipe.DifficultyEasy {
		return got == recipe.DifficultyEasy || got == recipe.DifficultyVeryEasy
	}
	return want == got
}

// Filter 依條件篩選快照，依評分由高到低排序（同分保持原順序）並取前 limit 筆
func Filter(snap *recipe.Snapshot, c Criteria, limit int) []recipe.Recipe {
	return FilterPlan(snap, ParsePlan(c), limit)
}

// FilterPlan 以已解析的條件篩選
func FilterPlan(snap *recipe.Snapshot, p Plan, limit int) []recipe.Recipe {
	if limit <= 0 {
		limit = DefaultCriteriaLimit
	}

	working := snap.Recipes()
	for _, st := range p.stages() {
		kept := working[:0]
		for i := range working {
			if st.keep(&working[i]) {
				kept = append(kept, working[i])
			}
		}
		common.LogDebug("篩選步驟",
			zap.String("stage", st.name),
			zap.Int("before", len(working)),
			zap.Int("after", len(kept)),
		)
		working = kept
	}

	sortByRating(working)
	if len(working) > limit {
		working = working[:limit]
	}
	return working
}

func sortByRating(recipes []recipe.Recipe) {
	sort.SliceStable(recipes, func(i, j int) bool {
		return recipes[i].Rating > recipes[j].Rating
	})
}
