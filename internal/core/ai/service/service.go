package service

import (
	"context"
	"errors"
	"strings"

	"recipe-assistant/internal/core/ai/cache"
	"recipe-assistant/internal/core/ai/provider"
	"recipe-assistant/internal/core/search"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

const systemPrompt = "You are a cooking assistant. The local recipe collection had no match, " +
	"so suggest a single recipe in the user's language. Keep it short and practical."

// Suggestion 生成式備援的回應，內容只轉發不解析
type Suggestion struct {
	Text        string             `json:"text"`
	Descriptors search.Descriptors `json:"descriptors"`
	Cached      bool               `json:"cached"`
	Model       string             `json:"model,omitempty"`
}

// Service 搜尋無結果時的生成式備援
type Service struct {
	provider     provider.Provider
	cacheManager *cache.CacheManager
}

// NewService 創建備援服務，provider 為 nil 表示停用
func NewService(p provider.Provider, cacheManager *cache.CacheManager) *Service {
	return &Service{provider: p, cacheManager: cacheManager}
}

// Enabled 是否可用
func (s *Service) Enabled() bool {
	return s != nil && s.provider != nil
}

// Suggest 依條件描述取得建議，先查快取
func (s *Service) Suggest(ctx context.Context, d search.Descriptors) (*Suggestion, error) {
	if !s.Enabled() {
		return nil, common.ErrFallbackUnavailable
	}

	prompt := strings.TrimSpace(d.Prompt())

	// 檢查緩存
	if s.cacheManager != nil {
		if val, err := s.cacheManager.Get(ctx, prompt); err == nil && val != "" {
			return &Suggestion{Text: val, Descriptors: d, Cached: true, Model: s.provider.GetModel()}, nil
		}
	}

	resp, err := s.provider.Generate(ctx, &provider.Request{
		Messages: []provider.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		common.LogWarn("備援生成失敗", zap.Error(err))
		return nil, common.Wrap(common.ErrFallbackUnavailable, err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, common.Wrap(common.ErrFallbackUnavailable, errors.New("empty response"))
	}

	if s.cacheManager != nil {
		if err := s.cacheManager.Set(ctx, prompt, resp.Content); err != nil {
			common.LogWarn("無法寫入備援快取", zap.Error(err))
		}
	}

	model := resp.Model
	if model == "" {
		model = s.provider.GetModel()
	}
	return &Suggestion{Text: resp.Content, Descriptors: d, Model: model}, nil
}

// CacheStats 快取統計，快取停用時回傳 nil
func (s *Service) CacheStats() map[string]interface{} {
	if s == nil || s.cacheManager == nil {
		return nil
	}
	return s.cacheManager.GetStats()
}
