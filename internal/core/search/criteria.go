package search

import (
	"fmt"
	"regexp"
	"strings"

	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/pkg/common"
	"recipe-assistant/internal/pkg/normalize"

	"go.uber.org/zap"
)

// Criteria 對話層傳入的篩選條件，六個欄位皆為可選的自由文字
type Criteria struct {
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Duration   string `json:"duration,omitempty"`
	Dietary    string `json:"dietary,omitempty"`
	Avoid      string `json:"avoid,omitempty"`
	Calories   string `json:"calories,omitempty"`
}

// Band 數值區間，Min 與 Max 皆為包含端點，nil 代表不限
type Band struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// AtMost 不超過 n
func AtMost(n int) Band {
	return Band{Max: recipe.IntPtr(n)}
}

// MoreThan 大於 n
func MoreThan(n int) Band {
	return Band{Min: recipe.IntPtr(n + 1)}
}

// AtLeast 不少於 n
func AtLeast(n int) Band {
	return Band{Min: recipe.IntPtr(n)}
}

// Between 介於 lo 與 hi 之間（含）
func Between(lo, hi int) Band {
	if lo > hi {
		lo, hi = hi, lo
	}
	return Band{Min: recipe.IntPtr(lo), Max: recipe.IntPtr(hi)}
}

// Contains 判斷數值是否落在區間內
func (b Band) Contains(v int) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

func (b Band) String() string {
	switch {
	case b.Min != nil && b.Max != nil:
		return fmt.Sprintf("%d-%d", *b.Min, *b.Max)
	case b.Max != nil:
		return fmt.Sprintf("<=%d", *b.Max)
	case b.Min != nil:
		return fmt.Sprintf(">=%d", *b.Min)
	}
	return "any"
}

// CalorieBand 固定的熱量區間
type CalorieBand string

const (
	CaloriesLight    CalorieBand = "light"
	CaloriesModerate CalorieBand = "moderate"
	CaloriesHearty   CalorieBand = "hearty"
	CaloriesVeryHigh CalorieBand = "very-high"
)

// Band 對應的數值區間
func (c CalorieBand) Band() Band {
	switch c {
	case CaloriesLight:
		return AtMost(300)
	case CaloriesModerate:
		return Between(301, 600)
	case CaloriesHearty:
		return Between(601, 900)
	case CaloriesVeryHigh:
		return MoreThan(900)
	}
	return Band{}
}

var calorieKeywords = []struct {
	band     CalorieBand
	keywords []string
}{
	{CaloriesVeryHigh, []string{"very high", "very-high", "muito alto", "muito calorico", "muito alta"}},
	{CaloriesLight, []string{"leve", "light", "baixa", "baixo", "low"}},
	{CaloriesModerate, []string{"moderado", "moderada", "moderate", "medio", "media"}},
	{CaloriesHearty, []string{"hearty", "substancial", "reforcado", "reforcada", "alto", "alta", "high"}},
}

// 代表「不限」的輸入
var anyValues = map[string]bool{
	"any": true, "qualquer": true, "qualquer uma": true, "tanto faz": true, "indiferente": true,
	"todas": true, "todos": true, "all": true, "sem restricao": true, "sem restricoes": true,
	"nenhuma": true, "nenhum": true, "none": true, "no": true, "nao": true, "outro": true, "nada": true,
}

var (
	rangePattern  = regexp.MustCompile(`(\d+)\s*(?:-|a|to|e|and)\s*(\d+)`)
	digitJoiner   = regexp.MustCompile(`(\d)_(\d)`)
	upperBoundRe  = regexp.MustCompile(`\b(?:ate|under|menos|less|max|maximo|within|rapido|rapida|quick|fast)\b|<|at most|up to`)
	lowerBoundRe  = regexp.MustCompile(`\b(?:mais|more|over|acima|longo|longa|elaborado|elaborada|long)\b|>`)
	hourMentionRe = regexp.MustCompile(`\d+\s*h|hora`)
	// "no more than"、"não mais que" 是上限而非下限
	negatedLowerRe = regexp.MustCompile(`\b(?:no|not|nao|never|nunca)\s+(?:more|mais|longer|over|acima)\b`)
)

// 以文字表示的時間量
var durationWords = strings.NewReplacer(
	"meia hora", "30 min",
	"half an hour", "30 min",
	"half hour", "30 min",
	"duas horas", "2h",
	"two hours", "2h",
	"uma hora", "1h",
	"one hour", "1h",
	"an hour", "1h",
	"a hour", "1h",
)

// IsAny 判斷輸入是否為「不限」
func IsAny(text string) bool {
	return anyValues[normalize.CollapseSpaces(normalize.Fold(strings.ReplaceAll(text, "_", " ")))]
}

// ParseDurationBand 將時間描述轉為區間，例如 "até 30 min"、"30-60"、"mais de 1h"
func ParseDurationBand(text string) (Band, bool) {
	s := normalize.Fold(text)
	if s == "" || IsAny(s) {
		return Band{}, false
	}
	s = digitJoiner.ReplaceAllString(s, "$1-$2")
	s = strings.NewReplacer("–", "-", "—", "-", "_", " ").Replace(s)
	s = durationWords.Replace(normalize.CollapseSpaces(s))

	if m := rangePattern.FindStringSubmatch(s); m != nil {
		lo, _ := normalize.FirstInt(m[1])
		hi, _ := normalize.FirstInt(m[2])
		// "1-2h" 這類以小時表示的區間
		if strings.Contains(s[strings.Index(s, m[0])+len(m[0]):], "h") && !strings.Contains(s, "min") {
			lo, hi = lo*60, hi*60
		}
		return Between(lo, hi), true
	}

	minutes, hasNumber := normalize.ParseDurationMinutes(s)
	switch {
	case negatedLowerRe.MatchString(s):
		if !hasNumber {
			minutes = 30
		}
		return AtMost(minutes), true
	case lowerBoundRe.MatchString(s):
		if !hasNumber {
			minutes = 60
		}
		return AtLeast(minutes), true
	case upperBoundRe.MatchString(s):
		if !hasNumber {
			minutes = 30
		}
		return AtMost(minutes), true
	case hasNumber && hourMentionRe.MatchString(s):
		return AtLeast(minutes), true
	case hasNumber:
		return AtMost(minutes), true
	}
	return Band{}, false
}

// ParseCalorieBand 將熱量描述對應到固定區間
func ParseCalorieBand(text string) (CalorieBand, bool) {
	s := normalize.Fold(strings.ReplaceAll(text, "_", " "))
	if s == "" || IsAny(s) {
		return "", false
	}
	for _, kw := range calorieKeywords {
		for _, w := range kw.keywords {
			if strings.Contains(s, w) {
				return kw.band, true
			}
		}
	}
	return "", false
}

// Plan 解析後的篩選條件
type Plan struct {
	Category       recipe.Category   `json:"category,omitempty"`
	CategoryText   string            `json:"category_text,omitempty"`
	Difficulty     recipe.Difficulty `json:"difficulty,omitempty"`
	DifficultyText string            `json:"difficulty_text,omitempty"`
	Duration       *Band             `json:"duration,omitempty"`
	Dietary        string            `json:"dietary,omitempty"`
	Avoid          []string          `json:"avoid,omitempty"`
	Calories       CalorieBand       `json:"calories,omitempty"`
}

// ParsePlan 將自由文字條件對應到固定的分類與區間；無法對應的分類與難度保留原文做子字串比對
func ParsePlan(c Criteria) Plan {
	var p Plan

	if c.Category != "" && !IsAny(c.Category) {
		if cat, ok := recipe.ParseCategory(c.Category); ok {
			p.Category = cat
		} else {
			p.CategoryText = normalize.CollapseSpaces(normalize.Fold(c.Category))
			common.LogWarn("無法對應分類，改用文字比對", zap.String("category", c.Category))
		}
	}

	if c.Difficulty != "" && !IsAny(c.Difficulty) {
		if d, ok := recipe.ParseDifficulty(c.Difficulty); ok {
			p.Difficulty = d
		} else {
			p.DifficultyText = normalize.CollapseSpaces(normalize.Fold(c.Difficulty))
			common.LogWarn("無法對應難度，改用文字比對", zap.String("difficulty", c.Difficulty))
		}
	}

	if c.Duration != "" {
		if band, ok := ParseDurationBand(c.Duration); ok {
			p.Duration = &band
		} else if !IsAny(c.Duration) {
			common.LogWarn("無法解析時間條件，已忽略", zap.String("duration", c.Duration))
		}
	}

	if c.Dietary != "" && !IsAny(c.Dietary) {
		tag, ok := recipe.ParseDietaryTag(c.Dietary)
		if !ok {
			common.LogWarn("無法對應飲食限制，改用文字比對", zap.String("dietary", c.Dietary))
		}
		p.Dietary = tag
	}

	if c.Avoid != "" && !IsAny(c.Avoid) {
		p.Avoid = normalize.Tokens(c.Avoid, 0)
	}

	if c.Calories != "" {
		if band, ok := ParseCalorieBand(c.Calories); ok {
			p.Calories = band
		} else if !IsAny(c.Calories) {
			common.LogWarn("無法對應熱量條件，已忽略", zap.String("calories", c.Calories))
		}
	}

	return p
}
