package search

import (
	"fmt"
	"sort"
	"strings"

	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/pkg/common"
	"recipe-assistant/internal/pkg/normalize"

	"go.uber.org/zap"
)

// Policy 食材比對策略
type Policy string

const (
	// PolicyAll 所有食材都必須出現
	PolicyAll Policy = "all"
	// PolicyAny 至少一項食材出現，依分數排序
	PolicyAny Policy = "any"
)

// ParsePolicy 解析比對策略
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyAll:
		return PolicyAll, nil
	case PolicyAny:
		return PolicyAny, nil
	}
	return "", fmt.Errorf("unknown ingredient policy %q", s)
}

// 食材關鍵字最短長度（不含）
const minIngredientTokenLen = 2

// IngredientOptions 食材比對設定
type IngredientOptions struct {
	Policy       Policy
	Limit        int
	StripPlural  bool
	RatingWeight float64
}

// DefaultIngredientOptions 預設為嚴格比對
func DefaultIngredientOptions() IngredientOptions {
	return IngredientOptions{
		Policy:       PolicyAll,
		Limit:        8,
		StripPlural:  true,
		RatingWeight: 0.1,
	}
}

// IngredientMatch 食材比對結果
type IngredientMatch struct {
	Recipe  recipe.Recipe `json:"recipe"`
	Matches int           `json:"matches"`
	Score   float64       `json:"score"`
}

// IngredientResult 比對結果與實際使用的關鍵字
type IngredientResult struct {
	Tokens  []string          `json:"tokens"`
	Policy  Policy            `json:"policy"`
	Matches []IngredientMatch `json:"matches"`
}

// IngredientTokens 切分使用者輸入的食材，丟棄過短的詞
func IngredientTokens(inputs []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, in := range inputs {
		for _, tok := range normalize.Tokens(in, minIngredientTokenLen) {
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	return out
}

// singular 簡單去掉字尾的 s
func singular(tok string) string {
	if len([]rune(tok)) > minIngredientTokenLen+1 && strings.HasSuffix(tok, "s") {
		return strings.TrimSuffix(tok, "s")
	}
	return tok
}

// MatchIngredients 依使用者擁有的食材比對食譜
func MatchIngredients(snap *recipe.Snapshot, inputs []string, opts IngredientOptions) (IngredientResult, error) {
	if opts.Policy == "" {
		opts.Policy = PolicyAll
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultIngredientOptions().Limit
	}

	tokens := IngredientTokens(inputs)
	result := IngredientResult{Tokens: tokens, Policy: opts.Policy, Matches: []IngredientMatch{}}
	if len(tokens) == 0 {
		return result, common.ErrNoValidIngredients
	}

	needles := make([]string, len(tokens))
	for i, tok := range tokens {
		needles[i] = tok
		if opts.StripPlural {
			needles[i] = singular(tok)
		}
	}

	for _, r := range snap.Recipes() {
		matches := 0
		for _, needle := range needles {
			if strings.Contains(r.Norm.Ingredients, needle) {
				matches++
			}
		}

		switch opts.Policy {
		case PolicyAll:
			if matches != len(needles) {
				continue
			}
		default:
			if matches == 0 {
				continue
			}
		}

		result.Matches = append(result.Matches, IngredientMatch{
			Recipe:  r,
			Matches: matches,
			Score:   float64(matches) + r.Rating*opts.RatingWeight,
		})
	}

	if opts.Policy == PolicyAll {
		sort.SliceStable(result.Matches, func(i, j int) bool {
			return result.Matches[i].Recipe.Rating > result.Matches[j].Recipe.Rating
		})
	} else {
		sort.SliceStable(result.Matches, func(i, j int) bool {
			return result.Matches[i].Score > result.Matches[j].Score
		})
	}

	if len(result.Matches) > opts.Limit {
		result.Matches = result.Matches[:opts.Limit]
	}

	common.LogDebug("食材比對完成",
		zap.Strings("tokens", tokens),
		zap.String("policy", string(opts.Policy)),
		zap.Int("results", len(result.Matches)),
	)
	return result, nil
}
