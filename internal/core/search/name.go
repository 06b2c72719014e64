package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/pkg/common"
	"recipe-assistant/internal/pkg/normalize"

	"go.uber.org/zap"
)

// NameWeights 名稱搜尋的計分權重
type NameWeights struct {
	WordHit       float64 `mapstructure:"word_hit"`
	FullMatch     float64 `mapstructure:"full_match"`
	Prefix        float64 `mapstructure:"prefix"`
	Ingredient    float64 `mapstructure:"ingredient"`
	Rating        float64 `mapstructure:"rating"`
	LengthPenalty float64 `mapstructure:"length_penalty"`
	MinScore      float64 `mapstructure:"min_score"`
}

// DefaultNameWeights 預設權重
func DefaultNameWeights() NameWeights {
	return NameWeights{
		WordHit:       1000,
		FullMatch:     5000,
		Prefix:        2000,
		Ingredient:    1,
		Rating:        0.5,
		LengthPenalty: 0.5,
		MinScore:      500,
	}
}

// DefaultNameLimit 名稱搜尋預設回傳筆數
const DefaultNameLimit = 10

var stopwords = map[string]bool{
	// pt
	"de": true, "da": true, "do": true, "das": true, "dos": true, "com": true, "em": true,
	"para": true, "um": true, "uma": true, "uns": true, "umas": true, "quero": true, "queria": true,
	"fazer": true, "cozinhar": true, "receita": true, "receitas": true, "como": true, "por": true,
	// en
	"of": true, "with": true, "in": true, "for": true, "the": true, "an": true, "want": true,
	"make": true, "cook": true, "recipe": true, "recipes": true, "how": true, "and": true,
}

// NameMatch 名稱搜尋結果
type NameMatch struct {
	Recipe    recipe.Recipe `json:"recipe"`
	Score     float64       `json:"score"`
	TitleHits int           `json:"title_hits"`
}

// QueryTokens 移除停用詞與過短的詞
func QueryTokens(query string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range normalize.Words(query) {
		if stopwords[w] || utf8.RuneCountInString(w) <= 2 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// MatchName 依菜名搜尋；標題中沒有任何完整單字命中的食譜會被排除
func MatchName(snap *recipe.Snapshot, query string, w NameWeights, limit int) ([]NameMatch, error) {
	if limit <= 0 {
		limit = DefaultNameLimit
	}

	tokens := QueryTokens(query)
	if len(tokens) == 0 {
		return []NameMatch{}, common.ErrEmptyQuery
	}
	fullQuery := strings.Join(normalize.Words(query), " ")

	matches := []NameMatch{}
	for _, r := range snap.Recipes() {
		words := make(map[string]bool, len(r.Norm.TitleWords))
		for _, tw := range r.Norm.TitleWords {
			words[tw] = true
		}

		hits := 0
		for _, tok := range tokens {
			if words[tok] {
				hits++
			}
		}
		if hits == 0 {
			continue
		}

		score := w.WordHit * float64(hits)
		if fullQuery != "" && strings.Contains(r.Norm.Title, fullQuery) {
			score += w.FullMatch
		}
		for _, tok := range tokens {
			if strings.HasPrefix(r.Norm.Title, tok) {
				score += w.Prefix
			}
			if strings.Contains(r.Norm.Ingredients, tok) {
				score += w.Ingredient
			}
		}
		score += w.Rating * r.Rating
		score -= w.LengthPenalty * float64(utf8.RuneCountInString(r.Title))

		if score <= w.MinScore {
			continue
		}
		matches = append(matches, NameMatch{Recipe: r, Score: score, TitleHits: hits})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	common.LogDebug("名稱搜尋完成",
		zap.String("query", query),
		zap.Strings("tokens", tokens),
		zap.Int("results", len(matches)),
	)
	return matches, nil
}
