package history

import (
	"context"
	"errors"
	"time"

	"recipe-assistant/internal/core/recipe"
)

func sampleRecipe(id, title string) recipe.Recipe {
	return recipe.Recipe{
		ID:              id,
		Title:           title,
		Category:        recipe.CategoryDessert,
		CategoryText:    "Sobremesa",
		Difficulty:      recipe.DifficultyEasy,
		DurationText:    "30 min",
		DurationMinutes: recipe.IntPtr(30),
		Calories:        recipe.IntPtr(350),
		Rating:          4.5,
		Ingredients:     []string{"200 g chocolate", "4 ovos"},
		Steps:           []string{"Derreter; o chocolate", "Misturar \"bem\""},
		DietaryTags:     []string{recipe.TagVegetarian},
	}
}

// fixedClock 每次呼叫前進一秒
func fixedClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type brokenStore struct{}

var errDisk = errors.New("disk full")

func (brokenStore) Append(context.Context, Kind, Entry) error { return errDisk }

func (brokenStore) ScanAll(context.Context, Kind) ([]Entry, error) { return []Entry{}, nil }

func (brokenStore) RewriteAll(context.Context, Kind, []Entry) error { return errDisk }
