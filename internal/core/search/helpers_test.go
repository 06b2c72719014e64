package search

import (
	"context"
	"testing"
	"time"

	"recipe-assistant/internal/core/recipe"
)

type fixture struct {
	id          string
	title       string
	category    string
	difficulty  string
	minutes     int // 0 表示無法解析
	calories    int // 0 表示無法解析
	rating      float64
	ingredients []string
	tags        []string
	steps       []string
}

func build(f fixture) recipe.Recipe {
	r := recipe.Recipe{
		ID:             f.id,
		Title:          f.title,
		CategoryText:   f.category,
		DifficultyText: f.difficulty,
		Rating:         f.rating,
		Ingredients:    f.ingredients,
		Steps:          f.steps,
	}
	if c, ok := recipe.ParseCategory(f.category); ok {
		r.Category = c
	}
	if d, ok := recipe.ParseDifficulty(f.difficulty); ok {
		r.Difficulty = d
	}
	if f.minutes > 0 {
		r.DurationMinutes = recipe.IntPtr(f.minutes)
	}
	if f.calories > 0 {
		r.Calories = recipe.IntPtr(f.calories)
	}
	for _, t := range f.tags {
		tag, _ := recipe.ParseDietaryTag(t)
		r.DietaryTags = append(r.DietaryTags, tag)
	}
	r.Prepare()
	return r
}

func newSnapshot(t *testing.T, fixtures ...fixture) *recipe.Snapshot {
	t.Helper()
	recipes := make([]recipe.Recipe, 0, len(fixtures))
	for _, f := range fixtures {
		recipes = append(recipes, build(f))
	}
	return recipe.NewSnapshot(recipes, "test", time.Now())
}

func ids(recipes []recipe.Recipe) []string {
	out := make([]string, len(recipes))
	for i, r := range recipes {
		out[i] = r.ID
	}
	return out
}

type staticProvider struct {
	snap *recipe.Snapshot
	err  error
}

func (p staticProvider) Snapshot(context.Context) (*recipe.Snapshot, error) {
	return p.snap, p.err
}

func catalog(t *testing.T) *recipe.Snapshot {
	t.Helper()
	return newSnapshot(t,
		fixture{id: "1", title: "Mousse de Chocolate", category: "Sobremesa", difficulty: "Fácil", minutes: 20, calories: 350, rating: 4.2,
			ingredients: []string{"200 g chocolate", "4 ovos", "açúcar"}, tags: []string{"Vegetariano", "Sem glúten"}},
		fixture{id: "2", title: "Tarte de Maçã", category: "Sobremesa", difficulty: "Médio", minutes: 45, calories: 420, rating: 4.8,
			ingredients: []string{"3 maçãs", "massa folhada", "canela"}, tags: []string{"Vegetariano"}},
		fixture{id: "3", title: "Pudim Flan", category: "Sobremesa", difficulty: "Difícil", minutes: 70, calories: 510, rating: 4.5,
			ingredients: []string{"leite", "6 ovos", "açúcar"}, tags: []string{"Sem glúten"}},
		fixture{id: "4", title: "Sopa de Legumes", category: "Entrada", difficulty: "Muito fácil", minutes: 30, calories: 120, rating: 4.1,
			ingredients: []string{"2 batatas", "cenoura", "cebola"}, tags: []string{"Vegan", "Sem glúten"}},
		fixture{id: "5", title: "Bacalhau à Brás", category: "Prato Principal", difficulty: "Médio", minutes: 40, calories: 650, rating: 4.9,
			ingredients: []string{"bacalhau", "batata palha", "ovos", "cebola"}},
		fixture{id: "6", title: "Francesinha", category: "Prato Principal", difficulty: "Difícil", minutes: 90, calories: 1200, rating: 4.7,
			ingredients: []string{"pão", "bife", "fiambre", "queijo", "molho de cerveja"}},
		fixture{id: "7", title: "Salada Caprese", category: "Entrada", difficulty: "Fácil", rating: 4.1,
			ingredients: []string{"tomate", "mozzarella", "manjericão"}, tags: []string{"Vegetariano"}},
	)
}
