package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	Dataset     DatasetConfig    `mapstructure:"dataset"`
	Search      SearchConfig     `mapstructure:"search"`
	Session     SessionConfig    `mapstructure:"session"`
	History     HistoryConfig    `mapstructure:"history"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	Cache       CacheConfig      `mapstructure:"cache"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
	LogDir      string           `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodySize    int64         `mapstructure:"max_body_size"`
}

// DatasetConfig 食譜資料集設定，TTL 為 0 表示只能手動重新載入
type DatasetConfig struct {
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// SearchConfig 搜尋設定
type SearchConfig struct {
	CriteriaLimit    int               `mapstructure:"criteria_limit"`
	IngredientPolicy string            `mapstructure:"ingredient_policy"`
	IngredientLimit  int               `mapstructure:"ingredient_limit"`
	StripPlural      bool              `mapstructure:"strip_plural"`
	NameLimit        int               `mapstructure:"name_limit"`
	NameWeights      NameWeightsConfig `mapstructure:"name_weights"`
}

// NameWeightsConfig 名稱搜尋權重
type NameWeightsConfig struct {
	WordHit       float64 `mapstructure:"word_hit"`
	FullMatch     float64 `mapstructure:"full_match"`
	Prefix        float64 `mapstructure:"prefix"`
	Ingredient    float64 `mapstructure:"ingredient"`
	Rating        float64 `mapstructure:"rating"`
	LengthPenalty float64 `mapstructure:"length_penalty"`
	MinScore      float64 `mapstructure:"min_score"`
}

// SessionConfig 烹飪會話儲存設定
type SessionConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// HistoryConfig 互動紀錄儲存設定
type HistoryConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	DSN     string `mapstructure:"dsn"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件，不存在時只使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	viper.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("dataset.path", "DATASET_PATH")
	viper.BindEnv("session.redis.addr", "REDIS_ADDR")
	viper.BindEnv("history.dsn", "DATABASE_URL")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")
	viper.BindEnv("log_dir", "LOG_DIR")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration", "dataset:", viper.GetString("dataset.path"), "openrouter_api_key:", maskAPIKey(viper.GetString("openrouter.api_key")))

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-assistant")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "15s")
	viper.SetDefault("server.max_body_size", 1<<20)

	// 資料集設定
	viper.SetDefault("dataset.path", "data_source/recipes.csv")
	viper.SetDefault("dataset.ttl", "0s")

	// 搜尋設定
	viper.SetDefault("search.criteria_limit", 5)
	viper.SetDefault("search.ingredient_policy", "all")
	viper.SetDefault("search.ingredient_limit", 8)
	viper.SetDefault("search.strip_plural", true)
	viper.SetDefault("search.name_limit", 10)
	viper.SetDefault("search.name_weights.word_hit", 1000)
	viper.SetDefault("search.name_weights.full_match", 5000)
	viper.SetDefault("search.name_weights.prefix", 2000)
	viper.SetDefault("search.name_weights.ingredient", 1)
	viper.SetDefault("search.name_weights.rating", 0.5)
	viper.SetDefault("search.name_weights.length_penalty", 0.5)
	viper.SetDefault("search.name_weights.min_score", 500)

	// 會話設定
	viper.SetDefault("session.backend", "memory")
	viper.SetDefault("session.ttl", "0s")
	viper.SetDefault("session.redis.addr", "localhost:6379")
	viper.SetDefault("session.redis.password", "")
	viper.SetDefault("session.redis.db", 0)
	viper.SetDefault("session.redis.prefix", "recipe:session:")

	// 紀錄設定
	viper.SetDefault("history.backend", "csv")
	viper.SetDefault("history.dir", "data")
	viper.SetDefault("history.dsn", "")

	// OpenRouter 設定
	viper.SetDefault("openrouter.enabled", false)
	viper.SetDefault("openrouter.api_key", "")
	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.model", "qwen/qwen2.5-72b-instruct:free")
	viper.SetDefault("openrouter.max_tokens", 1000)
	viper.SetDefault("openrouter.timeout", "60s")

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	viper.SetDefault("dedup_window", "1s")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Server.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout")
	}
	if config.Server.MaxBodySize <= 0 {
		return fmt.Errorf("invalid max body size")
	}
	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	// 驗證資料集設定
	if strings.TrimSpace(config.Dataset.Path) == "" {
		return fmt.Errorf("dataset path is required")
	}
	if config.Dataset.TTL < 0 {
		return fmt.Errorf("invalid dataset ttl")
	}

	// 驗證搜尋設定
	switch strings.ToLower(strings.TrimSpace(config.Search.IngredientPolicy)) {
	case "all", "any":
	default:
		return fmt.Errorf("invalid ingredient policy %q", config.Search.IngredientPolicy)
	}
	if config.Search.CriteriaLimit <= 0 || config.Search.IngredientLimit <= 0 || config.Search.NameLimit <= 0 {
		return fmt.Errorf("search limits must be positive")
	}

	// 驗證儲存後端
	switch config.Session.Backend {
	case "memory":
	case "redis":
		if config.Session.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for redis session backend")
		}
	default:
		return fmt.Errorf("invalid session backend %q", config.Session.Backend)
	}
	switch config.History.Backend {
	case "csv":
		if config.History.Dir == "" {
			return fmt.Errorf("history dir is required for csv backend")
		}
	case "sqlite", "postgres":
		if config.History.DSN == "" {
			return fmt.Errorf("history dsn is required for %s backend", config.History.Backend)
		}
	default:
		return fmt.Errorf("invalid history backend %q", config.History.Backend)
	}

	// 驗證 OpenRouter 設定
	if config.OpenRouter.Enabled && config.OpenRouter.APIKey == "" {
		return fmt.Errorf("openrouter api key is required when fallback is enabled")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	return nil
}
