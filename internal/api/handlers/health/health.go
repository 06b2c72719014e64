package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	recipeAI "recipe-assistant/internal/core/ai/service"
	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 注入 gin.Context 的鍵
const (
	ConfigKey   = "config"
	DatasetKey  = "dataset"
	FallbackKey = "fallback"
	SessionsKey = "sessions"
)

// Dataset 健康檢查需要的資料集操作
type Dataset interface {
	Snapshot(ctx context.Context) (*recipe.Snapshot, error)
	Status() (*recipe.Snapshot, error)
}

// Sessions 健康檢查需要的會話統計
type Sessions interface {
	ActiveCount(ctx context.Context) (int, error)
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status        string                 `json:"status"`
	Timestamp     time.Time              `json:"timestamp"`
	Version       string                 `json:"version"`
	Runtime       map[string]interface{} `json:"runtime"`
	Dataset       *DatasetStatus         `json:"dataset,omitempty"`
	FallbackCache map[string]interface{} `json:"fallback_cache,omitempty"`
	ActiveCooking *int                   `json:"active_sessions,omitempty"`
}

// DatasetStatus 資料集狀態
type DatasetStatus struct {
	Loaded    bool      `json:"loaded"`
	Recipes   int       `json:"recipes"`
	Source    string    `json:"source,omitempty"`
	LoadedAt  time.Time `json:"loaded_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	// 獲取配置
	cfg, ok := c.MustGet(ConfigKey).(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		common.WriteError(c, common.ErrInternalError)
		return
	}

	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   cfg.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	if ds, ok := c.Get(DatasetKey); ok {
		if dataset, ok := ds.(Dataset); ok {
			response.Dataset = datasetStatus(dataset)
			if !response.Dataset.Loaded && response.Dataset.LastError != "" {
				response.Status = "degraded"
			}
		}
	}
	if fb, ok := c.Get(FallbackKey); ok {
		if fallback, ok := fb.(*recipeAI.Service); ok {
			response.FallbackCache = fallback.CacheStats()
		}
	}

	if ss, ok := c.Get(SessionsKey); ok {
		if sessions, ok := ss.(Sessions); ok {
			count, err := sessions.ActiveCount(c.Request.Context())
			if err != nil {
				common.LogWarn("Failed to count active sessions", zap.Error(err))
			} else {
				response.ActiveCooking = &count
			}
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器，資料集無法載入時回傳 503
func ReadinessCheck(c *gin.Context) {
	dataset, ok := c.MustGet(DatasetKey).(Dataset)
	if !ok {
		common.WriteError(c, common.ErrInternalError)
		return
	}

	snap, err := dataset.Snapshot(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"recipes": snap.Len(),
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func datasetStatus(dataset Dataset) *DatasetStatus {
	snap, lastErr := dataset.Status()
	status := &DatasetStatus{}
	if snap != nil {
		status.Loaded = true
		status.Recipes = snap.Len()
		status.Source = snap.Source()
		status.LoadedAt = snap.LoadedAt()
	}
	if lastErr != nil {
		status.LastError = lastErr.Error()
	}
	return status
}
