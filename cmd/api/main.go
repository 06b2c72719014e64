package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"recipe-assistant/internal/api"
	"recipe-assistant/internal/core/ai/cache"
	"recipe-assistant/internal/core/ai/openrouter"
	"recipe-assistant/internal/core/ai/provider"
	recipeAI "recipe-assistant/internal/core/ai/service"
	"recipe-assistant/internal/core/cooking"
	"recipe-assistant/internal/core/history"
	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/core/search"
	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（包含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("dataset", cfg.Dataset.Path),
		zap.String("session_backend", cfg.Session.Backend),
		zap.String("history_backend", cfg.History.Backend),
		zap.Bool("fallback_enabled", cfg.OpenRouter.Enabled),
	)

	ctx := context.Background()
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				common.LogWarn("Failed to release resource", zap.Error(err))
			}
		}
	}()

	// 資料集，預熱失敗不中止啟動，由 /ready 回報
	dataset := recipe.NewStore(recipe.NewCSVSource(cfg.Dataset.Path), cfg.Dataset.TTL)
	if snap, err := dataset.Snapshot(ctx); err != nil {
		common.LogWarn("資料集預熱失敗", zap.Error(err))
	} else {
		common.LogInfo("資料集已載入", zap.Int("recipes", snap.Len()))
	}

	opts, err := searchOptions(cfg.Search)
	if err != nil {
		common.LogFatal("Invalid search settings", zap.Error(err))
	}
	searchSvc := search.NewService(dataset, opts)

	sessionStore, closer, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		common.LogFatal("Failed to initialize session store", zap.Error(err))
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	logStore, closer, err := newLogStore(ctx, cfg.History)
	if err != nil {
		common.LogFatal("Failed to initialize history store", zap.Error(err))
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	interactionLog := history.NewLog(logStore)

	// 生成式備援
	cacheManager := cache.NewManager(cfg.Cache)
	if cacheManager != nil {
		closers = append(closers, cacheManager)
	}
	var fallback *recipeAI.Service
	if cfg.OpenRouter.Enabled {
		client := openrouter.NewClient(provider.Config{
			APIKey:    cfg.OpenRouter.APIKey,
			BaseURL:   cfg.OpenRouter.BaseURL,
			Model:     cfg.OpenRouter.Model,
			MaxTokens: cfg.OpenRouter.MaxTokens,
			Timeout:   cfg.OpenRouter.Timeout,
		})
		fallback = recipeAI.NewService(client, cacheManager)
	}

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Services{
		Dataset:  dataset,
		Search:   searchSvc,
		Sessions: cooking.NewService(sessionStore, searchSvc, interactionLog),
		History:  interactionLog,
		Fallback: fallback,
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		return
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		common.LogError("Failed to start server", zap.Error(err))
		return
	}

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

// searchOptions 將設定轉為搜尋參數
func searchOptions(cfg config.SearchConfig) (search.Options, error) {
	policy, err := search.ParsePolicy(cfg.IngredientPolicy)
	if err != nil {
		return search.Options{}, err
	}

	opts := search.DefaultOptions()
	opts.CriteriaLimit = cfg.CriteriaLimit
	opts.NameLimit = cfg.NameLimit
	opts.Ingredient.Policy = policy
	opts.Ingredient.Limit = cfg.IngredientLimit
	opts.Ingredient.StripPlural = cfg.StripPlural
	opts.NameWeights = search.NameWeights(cfg.NameWeights)
	return opts, nil
}

// newSessionStore 依設定建立會話儲存
func newSessionStore(ctx context.Context, cfg config.SessionConfig) (cooking.Store, io.Closer, error) {
	if cfg.Backend != "redis" {
		return cooking.NewMemoryStore(), nil, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := cooking.DialRedis(dialCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	common.LogInfo("Redis 會話儲存已連線", zap.String("addr", cfg.Redis.Addr))
	return cooking.NewRedisStore(client, cfg.Redis.Prefix, cfg.TTL), client, nil
}

// newLogStore 依設定建立收藏與最近紀錄的儲存
func newLogStore(ctx context.Context, cfg config.HistoryConfig) (history.LogStore, io.Closer, error) {
	switch cfg.Backend {
	case "sqlite", "postgres":
		dialect := history.Dialect(cfg.Backend)
		// 純檔案路徑的 sqlite 需先建立目錄
		if dialect == history.DialectSQLite && !strings.Contains(cfg.DSN, ":") {
			if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err := history.OpenDB(ctx, dialect, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := history.Migrate(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return history.NewSQLStore(db, dialect), db, nil
	default:
		store, err := history.NewCSVStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}
