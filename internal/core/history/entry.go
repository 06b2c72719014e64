package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/pkg/common"
	"recipe-assistant/internal/pkg/normalize"
)

// Kind 紀錄種類
type Kind string

const (
	KindRecent   Kind = "recent"
	KindFavorite Kind = "favorite"
)

// Entry 紀錄時的食譜欄位副本，資料集變更後仍保留
type Entry struct {
	Timestamp       time.Time `json:"timestamp"`
	RecipeID        string    `json:"id"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	Difficulty      string    `json:"difficulty"`
	DurationText    string    `json:"duration_text"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Calories        *int      `json:"calories,omitempty"`
	DatasetRating   float64   `json:"dataset_rating"`
	DietaryTags     []string  `json:"dietary_tags"`
	Ingredients     []string  `json:"ingredients"`
	Steps           []string  `json:"steps"`
	UserRating      *int      `json:"user_rating,omitempty"`
}

// NewEntry 由食譜建立紀錄
func NewEntry(r recipe.Recipe, at time.Time, rating *int) Entry {
	e := Entry{
		Timestamp:       at,
		RecipeID:        r.ID,
		Title:           r.Title,
		Category:        string(r.Category),
		Difficulty:      string(r.Difficulty),
		DurationText:    r.DurationText,
		DurationMinutes: r.DurationMinutes,
		Calories:        r.Calories,
		DatasetRating:   r.Rating,
		DietaryTags:     append([]string(nil), r.DietaryTags...),
		Ingredients:     append([]string(nil), r.Ingredients...),
		Steps:           append([]string(nil), r.Steps...),
	}
	if e.Category == "" {
		e.Category = r.CategoryText
	}
	if e.Difficulty == "" {
		e.Difficulty = r.DifficultyText
	}
	if rating != nil {
		v := *rating
		e.UserRating = &v
	}
	return e
}

// ValidateRating 評分可省略，提供時必須介於 1 到 5
func ValidateRating(rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < 1 || *rating > 5 {
		return common.WithMessage(common.ErrOutOfRangeRating, fmt.Sprintf("評分必須介於 1 到 5 之間，收到 %d", *rating))
	}
	return nil
}

// 檔案欄位順序
var recentColumns = []string{
	"timestamp", "id", "title", "category", "difficulty", "duration_text", "duration_minutes",
	"calories", "dataset_rating", "dietary_tags", "ingredients", "steps", "user_rating",
}

// 收藏與最近紀錄相同，但沒有 user_rating
var favoriteColumns = recentColumns[:len(recentColumns)-1]

func columnsFor(kind Kind) []string {
	if kind == KindFavorite {
		return favoriteColumns
	}
	return recentColumns
}

// record 轉成檔案列
func (e Entry) record(kind Kind) []string {
	rec := []string{
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.RecipeID,
		e.Title,
		e.Category,
		e.Difficulty,
		e.DurationText,
		formatOptionalInt(e.DurationMinutes),
		formatOptionalInt(e.Calories),
		strconv.FormatFloat(e.DatasetRating, 'f', -1, 64),
		normalize.JoinMultiValue(e.DietaryTags),
		normalize.JoinMultiValue(e.Ingredients),
		normalize.JoinMultiValue(e.Steps),
	}
	if kind == KindRecent {
		rec = append(rec, formatOptionalInt(e.UserRating))
	}
	return rec
}

// parseRecord 由檔案列還原紀錄
func parseRecord(rec []string, columns map[string]int) (Entry, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	ts, err := time.Parse(time.RFC3339Nano, field("timestamp"))
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	e := Entry{
		Timestamp:       ts,
		RecipeID:        field("id"),
		Title:           field("title"),
		Category:        field("category"),
		Difficulty:      field("difficulty"),
		DurationText:    field("duration_text"),
		DurationMinutes: parseOptionalInt(field("duration_minutes")),
		Calories:        parseOptionalInt(field("calories")),
		DatasetRating:   normalize.ParseRating(field("dataset_rating")),
		DietaryTags:     normalize.SplitMultiValue(field("dietary_tags")),
		Ingredients:     normalize.SplitMultiValue(field("ingredients")),
		Steps:           normalize.SplitMultiValue(field("steps")),
		UserRating:      parseOptionalInt(field("user_rating")),
	}
	if e.RecipeID == "" {
		return Entry{}, fmt.Errorf("missing recipe id")
	}
	return e, nil
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseOptionalInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
