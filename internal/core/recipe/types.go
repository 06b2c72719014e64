package recipe

import (
	"strings"

	"recipe-assistant/internal/pkg/normalize"
)

// Category 食譜分類
type Category string

const (
	CategoryStarter Category = "starter"
	CategoryMain    Category = "main"
	CategoryDessert Category = "dessert"
)

// Difficulty 食譜難度
type Difficulty string

const (
	DifficultyVeryEasy Difficulty = "very-easy"
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
)

// 飲食標籤的受控詞彙
const (
	TagVegan       = "vegan"
	TagVegetarian  = "vegetarian"
	TagGlutenFree  = "gluten-free"
	TagLactoseFree = "lactose-free"
	TagSugarFree   = "sugar-free"
	TagEggFree     = "egg-free"
)

type keywordMapping[T any] struct {
	value    T
	keywords []string
}

// 順序有意義：較具體的關鍵字要放在前面
var categoryKeywords = []keywordMapping[Category]{
	{CategoryStarter, []string{"entrada", "starter", "appetizer", "aperitivo", "petisco"}},
	{CategoryDessert, []string{"sobremesa", "dessert", "doce"}},
	{CategoryMain, []string{"prato principal", "principal", "prato", "main"}},
}

var difficultyKeywords = []keywordMapping[Difficulty]{
	{DifficultyVeryEasy, []string{"muito facil", "very easy", "very-easy", "muito_facil"}},
	{DifficultyEasy, []string{"facil", "easy"}},
	{DifficultyMedium, []string{"medio", "media", "intermedio", "medium"}},
	{DifficultyHard, []string{"dificil", "hard", "difficult"}},
}

var dietaryKeywords = []keywordMapping[string]{
	{TagGlutenFree, []string{"sem gluten", "gluten free", "gluten-free", "gluten"}},
	{TagLactoseFree, []string{"sem lactose", "lactose free", "lactose-free", "lactose"}},
	{TagSugarFree, []string{"sem acucar", "sugar free", "sugar-free", "acucar", "sugar"}},
	{TagVegetarian, []string{"vegetarian", "vegetariano", "vegetariana"}},
	{TagVegan, []string{"vegan", "vegano", "vegana"}},
	{TagEggFree, []string{"sem ovo", "egg free", "egg-free", "ovo", "egg"}},
}

func lookup[T any](mappings []keywordMapping[T], text string) (T, bool) {
	folded := normalize.Fold(strings.ReplaceAll(text, "_", " "))
	for _, m := range mappings {
		for _, kw := range m.keywords {
			if strings.Contains(folded, kw) {
				return m.value, true
			}
		}
	}
	var zero T
	return zero, false
}

// ParseCategory 將自由文字分類對應到固定分類
func ParseCategory(text string) (Category, bool) {
	return lookup(categoryKeywords, text)
}

// ParseDifficulty 將自由文字難度對應到固定難度
func ParseDifficulty(text string) (Difficulty, bool) {
	return lookup(difficultyKeywords, text)
}

// ParseDietaryTag 將飲食限制文字對應到受控詞彙，無法對應時回傳正規化後的原文
func ParseDietaryTag(text string) (string, bool) {
	if tag, ok := lookup(dietaryKeywords, text); ok {
		return tag, true
	}
	return normalize.CollapseSpaces(normalize.Fold(text)), false
}

// Recipe 食譜，載入後不可變更
type Recipe struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Category        Category   `json:"category"`
	CategoryText    string     `json:"category_text,omitempty"`
	Difficulty      Difficulty `json:"difficulty"`
	DifficultyText  string     `json:"difficulty_text,omitempty"`
	DurationText    string     `json:"duration_text,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Calories        *int       `json:"calories,omitempty"`
	Rating          float64    `json:"rating"`
	Servings        int        `json:"servings"`
	ImageURL        string     `json:"image_url,omitempty"`
	Ingredients     []string   `json:"ingredients"`
	Steps           []string   `json:"steps"`
	DietaryTags     []string   `json:"dietary_tags"`

	Norm Normalized `json:"-"`
}

// Normalized 搜尋用的預先正規化欄位
type Normalized struct {
	Title       string // 以空白串接的標題單字，不含標點
	TitleWords  []string
	Category    string
	Ingredients string
	Dietary     []string
}

// Prepare 計算搜尋用欄位
func (r *Recipe) Prepare() {
	words := normalize.Words(r.Title)
	r.Norm = Normalized{
		Title:       strings.Join(words, " "),
		TitleWords:  words,
		Category:    normalize.Fold(r.CategoryText),
		Ingredients: normalize.Fold(strings.Join(r.Ingredients, " | ")),
		Dietary:     make([]string, 0, len(r.DietaryTags)),
	}
	for _, tag := range r.DietaryTags {
		r.Norm.Dietary = append(r.Norm.Dietary, normalize.Fold(tag))
	}
}

// StepCount 步驟數量
func (r *Recipe) StepCount() int {
	return len(r.Steps)
}

// Step 取得第 n 個步驟（從 1 開始）
func (r *Recipe) Step(n int) (string, bool) {
	if n < 1 || n > len(r.Steps) {
		return "", false
	}
	return r.Steps[n-1], true
}

// IntPtr 回傳整數指標
func IntPtr(v int) *int {
	return &v
}
