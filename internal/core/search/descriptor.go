package search

import (
	"fmt"
	"strings"

	"recipe-assistant/internal/core/recipe"
)

// 未指定條件時的描述
const (
	DescriptorAny  = "any"
	DescriptorNone = "none"
)

// Descriptors 以自然語言描述的條件，供生成式備援使用
type Descriptors struct {
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Duration   string `json:"duration"`
	Dietary    string `json:"dietary"`
	Avoid      string `json:"avoid"`
	Calories   string `json:"calories"`
}

var categoryNames = map[recipe.Category]string{
	recipe.CategoryStarter: "starter",
	recipe.CategoryMain:    "main course",
	recipe.CategoryDessert: "dessert",
}

var difficultyNames = map[recipe.Difficulty]string{
	recipe.DifficultyVeryEasy: "very easy",
	recipe.DifficultyEasy:     "easy",
	recipe.DifficultyMedium:   "medium",
	recipe.DifficultyHard:     "hard",
}

var calorieNames = map[CalorieBand]string{
	CaloriesLight:    "light (up to 300 kcal per serving)",
	CaloriesModerate: "moderate (301 to 600 kcal per serving)",
	CaloriesHearty:   "hearty (601 to 900 kcal per serving)",
	CaloriesVeryHigh: "very high (more than 900 kcal per serving)",
}

// Describe 將解析後的條件轉為自然語言描述
func Describe(p Plan) Descriptors {
	d := Descriptors{
		Category:   DescriptorAny,
		Difficulty: DescriptorAny,
		Duration:   DescriptorAny,
		Dietary:    DescriptorNone,
		Avoid:      DescriptorNone,
		Calories:   DescriptorAny,
	}

	switch {
	case p.Category != "":
		d.Category = categoryNames[p.Category]
	case p.CategoryText != "":
		d.Category = p.CategoryText
	}

	switch {
	case p.Difficulty != "":
		d.Difficulty = difficultyNames[p.Difficulty]
	case p.DifficultyText != "":
		d.Difficulty = p.DifficultyText
	}

	if p.Duration != nil {
		d.Duration = describeDuration(*p.Duration)
	}
	if p.Dietary != "" {
		d.Dietary = p.Dietary
	}
	if len(p.Avoid) > 0 {
		d.Avoid = strings.Join(p.Avoid, ", ")
	}
	if p.Calories != "" {
		d.Calories = calorieNames[p.Calories]
	}
	return d
}

func describeDuration(b Band) string {
	switch {
	case b.Min != nil && b.Max != nil:
		return fmt.Sprintf("between %d and %d minutes", *b.Min, *b.Max)
	case b.Max != nil:
		return "under " + formatMinutes(*b.Max)
	case b.Min != nil:
		return "more than " + formatMinutes(*b.Min)
	}
	return DescriptorAny
}

func formatMinutes(m int) string {
	switch {
	case m == 60:
		return "1 hour"
	case m > 0 && m%60 == 0:
		return fmt.Sprintf("%d hours", m/60)
	}
	return fmt.Sprintf("%d minutes", m)
}

// Prompt 將描述組成給生成式模型的提示
func (d Descriptors) Prompt() string {
	var b strings.Builder
	b.WriteString("Suggest one home-cooking recipe that matches these preferences. ")
	b.WriteString("Reply with a title, an ingredient list and numbered steps.\n")
	fmt.Fprintf(&b, "Category: %s\n", d.Category)
	fmt.Fprintf(&b, "Difficulty: %s\n", d.Difficulty)
	fmt.Fprintf(&b, "Total time: %s\n", d.Duration)
	fmt.Fprintf(&b, "Dietary restriction: %s\n", d.Dietary)
	fmt.Fprintf(&b, "Ingredients to avoid: %s\n", d.Avoid)
	fmt.Fprintf(&b, "Calories: %s\n", d.Calories)
	return b.String()
}
