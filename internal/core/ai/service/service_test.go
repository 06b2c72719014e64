package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipe-assistant/internal/core/ai/cache"
	"recipe-assistant/internal/core/ai/provider"
	"recipe-assistant/internal/core/search"
	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls   int
	content string
	err     error
	last    *provider.Request
}

func (f *fakeProvider) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.content}, nil
}

func (f *fakeProvider) GetModel() string { return "fake-model" }

func (f *fakeProvider) GetTimeout() time.Duration { return time.Second }

func descriptors() search.Descriptors {
	return search.Describe(search.ParsePlan(search.Criteria{Category: "sobremesa", Duration: "ate 30 min"}))
}

func TestSuggestUsesCache(t *testing.T) {
	p := &fakeProvider{content: "Mousse rápida"}
	cm := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Hour})
	t.Cleanup(func() { _ = cm.Close() })
	svc := NewService(p, cm)
	ctx := context.Background()

	first, err := svc.Suggest(ctx, descriptors())
	require.NoError(t, err)
	assert.Equal(t, "Mousse rápida", first.Text)
	assert.False(t, first.Cached)
	assert.Equal(t, "fake-model", first.Model)
	require.Len(t, p.last.Messages, 2)
	assert.Contains(t, p.last.Messages[1].Content, "Total time: under 30 minutes")

	second, err := svc.Suggest(ctx, descriptors())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, int64(1), svc.CacheStats()["hits"])
}

func TestSuggestDisabled(t *testing.T) {
	svc := NewService(nil, nil)
	assert.False(t, svc.Enabled())
	_, err := svc.Suggest(context.Background(), descriptors())
	assert.ErrorIs(t, err, common.ErrFallbackUnavailable)
	assert.Nil(t, svc.CacheStats())
}

func TestSuggestProviderFailure(t *testing.T) {
	svc := NewService(&fakeProvider{err: errors.New("timeout")}, nil)
	_, err := svc.Suggest(context.Background(), descriptors())
	assert.ErrorIs(t, err, common.ErrFallbackUnavailable)

	svc = NewService(&fakeProvider{content: "  "}, nil)
	_, err = svc.Suggest(context.Background(), descriptors())
	assert.ErrorIs(t, err, common.ErrFallbackUnavailable)
}
