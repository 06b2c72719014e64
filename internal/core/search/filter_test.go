package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	snap := catalog(t)

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"no criteria returns top five by rating", Criteria{}, []string{"5", "2", "6", "3", "1"}},
		{"dessert up to 30 minutes", Criteria{Category: "sobremesa", Duration: "até 30 min"}, []string{"1"}},
		{"ties keep source order", Criteria{Category: "Entrada"}, []string{"4", "7"}},
		{"easy includes very easy", Criteria{Difficulty: "fácil"}, []string{"1", "4", "7"}},
		{"dietary vegetarian", Criteria{Dietary: "vegetariano"}, []string{"2", "1", "7"}},
		{"dietary gluten", Criteria{Dietary: "gluten"}, []string{"3", "1", "4"}},
		{"avoid ingredients", Criteria{Avoid: "ovos, canela"}, []string{"6", "4", "7"}},
		{"avoid with and", Criteria{Avoid: "queijo e bacalhau"}, []string{"2", "3", "1", "4", "7"}},
		{"light calories", Criteria{Calories: "leve"}, []string{"4"}},
		{"moderate calories", Criteria{Calories: "moderado"}, []string{"2", "3", "1"}},
		{"hearty calories", Criteria{Calories: "hearty"}, []string{"5"}},
		{"very high calories", Criteria{Calories: "very high"}, []string{"6"}},
		{"more than an hour", Criteria{Duration: "mais de 1 hora"}, []string{"6", "3"}},
		{"explicit range", Criteria{Duration: "30-45"}, []string{"5", "2", "4"}},
		{"slot style band", Criteria{Duration: "30_60min"}, []string{"5", "2", "4"}},
		{"main course", Criteria{Category: "prato principal", Difficulty: "médio"}, []string{"5"}},
		{"nothing matches", Criteria{Category: "entrada", Calories: "very high"}, []string{}},
		{
			"any values are no-ops",
			Criteria{Category: "qualquer", Dietary: "nenhuma", Calories: "sem restrição", Duration: "tanto faz", Difficulty: "any", Avoid: "nada"},
			[]string{"5", "2", "6", "3", "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(snap, tt.criteria, 5)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilterLowerDurationBoundIsInclusive(t *testing.T) {
	snap := newSnapshot(t,
		fixture{id: "a", title: "Arroz de Pato", minutes: 60, rating: 4},
		fixture{id: "b", title: "Caldo Verde", minutes: 59, rating: 5},
		fixture{id: "c", title: "Cozido", minutes: 180, rating: 3},
	)
	assert.Equal(t, []string{"a", "c"}, ids(Filter(snap, Criteria{Duration: "mais de 1h"}, 5)))
	assert.Equal(t, []string{"b", "a"}, ids(Filter(snap, Criteria{Duration: "no more than an hour"}, 5)))
}

func TestFilterUnmappedCategoryFallsBackToText(t *testing.T) {
	snap := newSnapshot(t,
		fixture{id: "a", title: "Tosta Mista", category: "Lanche", rating: 3},
		fixture{id: "b", title: "Arroz Doce", category: "Sobremesa", rating: 5},
	)
	got := Filter(snap, Criteria{Category: "lanche"}, 5)
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestFilterMonotonicNarrowing(t *testing.T) {
	snap := catalog(t)
	all := Filter(snap, Criteria{}, 100)
	require.Len(t, all, snap.Len())

	steps := []func(c *Criteria){
		func(c *Criteria) { c.Category = "sobremesa" },
		func(c *Criteria) { c.Difficulty = "facil" },
		func(c *Criteria) { c.Duration = "ate 60 min" },
		func(c *Criteria) { c.Dietary = "vegetariano" },
		func(c *Criteria) { c.Avoid = "canela" },
		func(c *Criteria) { c.Calories = "moderado" },
	}

	var c Criteria
	prev := ids(all)
	for _, apply := range steps {
		apply(&c)
		got := ids(Filter(snap, c, 100))
		assert.LessOrEqual(t, len(got), len(prev))
		assert.Subset(t, prev, got)
		prev = got
	}
	assert.Equal(t, []string{"1"}, prev)
}

func TestFilterDeterministic(t *testing.T) {
	snap := catalog(t)
	c := Criteria{Dietary: "sem gluten"}
	first := ids(Filter(snap, c, 5))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ids(Filter(snap, c, 5)))
	}
}

func TestParseDurationBand(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"até 30 minutos", "<=30", true},
		{"ate_30min", "<=30", true},
		{"Rápido (menos de 30 minutos)", "<=30", true},
		{"entre 30 e 60 minutos", "30-60", true},
		{"1-2h", "60-120", true},
		{"mais_1h", ">=60", true},
		{"mais de 1 hora", ">=60", true},
		{"more than 90 minutes", ">=90", true},
		{"Prato elaborado", ">=60", true},
		{"1h", ">=60", true},
		{"no more than 30 minutes", "<=30", true},
		{"not more than 45 min", "<=45", true},
		{"não mais que 20 minutos", "<=20", true},
		{"up to 40 minutes", "<=40", true},
		{"less than an hour", "<=60", true},
		{"menos de uma hora", "<=60", true},
		{"meia hora", "<=30", true},
		{"uma hora", ">=60", true},
		{"45", "<=45", true},
		{"tanto faz", "any", false},
		{"sem ideia", "any", false},
	}
	for _, tt := range tests {
		band, ok := ParseDurationBand(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, band.String(), tt.in)
	}
}

func TestCalorieBands(t *testing.T) {
	assert.True(t, CaloriesLight.Band().Contains(300))
	assert.False(t, CaloriesLight.Band().Contains(301))
	assert.True(t, CaloriesModerate.Band().Contains(301))
	assert.True(t, CaloriesModerate.Band().Contains(600))
	assert.True(t, CaloriesHearty.Band().Contains(601))
	assert.True(t, CaloriesHearty.Band().Contains(900))
	assert.False(t, CaloriesHearty.Band().Contains(901))
	assert.True(t, CaloriesVeryHigh.Band().Contains(901))

	band, ok := ParseCalorieBand("Baixas calorias (menos de 300 Kcal por dose)")
	assert.True(t, ok)
	assert.Equal(t, CaloriesLight, band)

	_, ok = ParseCalorieBand("sem restrição")
	assert.False(t, ok)
}
