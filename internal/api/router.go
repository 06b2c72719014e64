package api

import (
	"fmt"
	"time"

	"recipe-assistant/internal/api/handlers/health"
	historyHandler "recipe-assistant/internal/api/handlers/history"
	recipeHandler "recipe-assistant/internal/api/handlers/recipe"
	sessionHandler "recipe-assistant/internal/api/handlers/session"
	"recipe-assistant/internal/api/middleware"
	recipeAI "recipe-assistant/internal/core/ai/service"
	"recipe-assistant/internal/core/cooking"
	"recipe-assistant/internal/core/history"
	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/core/search"
	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services 路由需要的服務
type Services struct {
	Dataset  *recipe.Store
	Search   *search.Service
	Sessions *cooking.Service
	History  *history.Log
	Fallback *recipeAI.Service
}

func (s Services) validate() error {
	switch {
	case s.Dataset == nil:
		return fmt.Errorf("dataset store is required")
	case s.Search == nil:
		return fmt.Errorf("search service is required")
	case s.Sessions == nil:
		return fmt.Errorf("session service is required")
	case s.History == nil:
		return fmt.Errorf("history log is required")
	}
	return nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc Services) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if err := svc.validate(); err != nil {
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	// 設置 gin 模式
	if !cfg.App.Debug && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.IdempotencyKeyHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制與超時
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodySize))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// 注入健康檢查使用的元件
	router.Use(func(c *gin.Context) {
		c.Set(health.ConfigKey, cfg)
		c.Set(health.DatasetKey, svc.Dataset)
		c.Set(health.FallbackKey, svc.Fallback)
		c.Set(health.SessionsKey, svc.Sessions)
		c.Next()
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	api.Use(middleware.Deduplication(cfg.DedupWindow))
	{
		recipes := recipeHandler.NewHandler(svc.Search, svc.Fallback, svc.Dataset)

		// 食譜查詢
		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.POST("/search", recipes.HandleSearch)
			recipeGroup.POST("/ingredients", recipes.HandleIngredients)
			recipeGroup.POST("/name", recipes.HandleName)
			recipeGroup.POST("/select", recipes.HandleSelect)
			recipeGroup.GET("/:id", recipes.HandleGet)
		}

		// 引導式烹飪
		sessionHandler.NewHandler(svc.Sessions).Register(api.Group("/sessions/:conversation_id"))

		// 收藏與最近紀錄
		logs := historyHandler.NewHandler(svc.History, svc.Search)
		favoriteGroup := api.Group("/favorites")
		{
			favoriteGroup.GET("", logs.HandleListFavorites)
			favoriteGroup.POST("", logs.HandleAddFavorite)
			favoriteGroup.GET("/:id", logs.HandleIsFavorite)
			favoriteGroup.DELETE("/:id", logs.HandleRemoveFavorite)
			favoriteGroup.POST("/:id/toggle", logs.HandleToggleFavorite)
		}
		api.GET("/recents", logs.HandleRecents)
		api.GET("/history/summary", logs.HandleSummary)

		// 資料集管理
		api.POST("/admin/dataset/reload", recipes.HandleReload)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("fallback_enabled", svc.Fallback.Enabled()),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodySize),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
	)

	return router, nil
}
