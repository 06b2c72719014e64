package recipe

import (
	"context"
	"net/http"
	"time"

	recipeAI "recipe-assistant/internal/core/ai/service"
	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/core/search"
	"recipe-assistant/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DatasetReloader 可重新載入資料集的元件
type DatasetReloader interface {
	Reload(ctx context.Context) (*recipe.Snapshot, error)
}

// SearchRequest 條件搜尋請求
type SearchRequest struct {
	Criteria search.Criteria `json:"criteria"`
	// Fallback 為 false 時即使沒有結果也不呼叫備援
	Fallback *bool `json:"fallback,omitempty"`
}

// SearchResponse 條件搜尋結果
type SearchResponse struct {
	Recipes       []recipe.Recipe      `json:"recipes"`
	Count         int                  `json:"count"`
	Plan          search.Plan          `json:"plan"`
	Fallback      *recipeAI.Suggestion `json:"fallback,omitempty"`
	FallbackError string               `json:"fallback_error,omitempty"`
}

// IngredientRequest 食材搜尋請求
type IngredientRequest struct {
	Ingredients []string `json:"ingredients" binding:"required"`
	Policy      string   `json:"policy,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// NameRequest 菜名搜尋請求
type NameRequest struct {
	Query string `json:"query"`
}

// NameResponse 菜名搜尋結果
type NameResponse struct {
	Matches []search.NameMatch `json:"matches"`
	Count   int                `json:"count"`
}

// SelectRequest 從上一輪結果中選擇食譜
type SelectRequest struct {
	RecipeIDs []string `json:"recipe_ids" binding:"required"`
	Choice    string   `json:"choice" binding:"required"`
}

// SelectResponse 選擇結果
type SelectResponse struct {
	Index  int           `json:"index"`
	Recipe recipe.Recipe `json:"recipe"`
}

// ReloadResponse 資料集重新載入結果
type ReloadResponse struct {
	Recipes  int       `json:"recipes"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Handler 食譜查詢處理器
type Handler struct {
	searchService *search.Service
	fallback      *recipeAI.Service
	dataset       DatasetReloader
}

// NewHandler 創建食譜處理器，fallback 可為 nil
func NewHandler(searchService *search.Service, fallback *recipeAI.Service, dataset DatasetReloader) *Handler {
	return &Handler{
		searchService: searchService,
		fallback:      fallback,
		dataset:       dataset,
	}
}

// HandleSearch 依條件搜尋，沒有結果時改用生成式備援
func (h *Handler) HandleSearch(c *gin.Context) {
	requestID := requestid.Get(c)

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		common.WriteError(c, common.Wrap(common.ErrInvalidRequest, err))
		return
	}

	recipes, plan, err := h.searchService.ByCriteria(c.Request.Context(), req.Criteria)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	resp := SearchResponse{
		Recipes: recipes,
		Count:   len(recipes),
		Plan:    plan,
	}
	if resp.Recipes == nil {
		resp.Recipes = []recipe.Recipe{}
	}

	wantFallback := req.Fallback == nil || *req.Fallback
	if len(recipes) == 0 && wantFallback && h.fallback.Enabled() {
		suggestion, err := h.fallback.Suggest(c.Request.Context(), search.Describe(plan))
		if err != nil {
			resp.FallbackError = common.AsCustomError(err).Message
		} else {
			resp.Fallback = suggestion
		}
	}

	common.LogInfo("條件搜尋完成",
		zap.String("request_id", requestID),
		zap.Int("results", resp.Count),
		zap.Bool("fallback", resp.Fallback != nil),
	)
	c.JSON(http.StatusOK, resp)
}

// HandleIngredients 依食材搜尋
func (h *Handler) HandleIngredients(c *gin.Context) {
	var req IngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.Wrap(common.ErrInvalidRequest, err))
		return
	}

	var policy search.Policy
	if req.Policy != "" {
		p, err := search.ParsePolicy(req.Policy)
		if err != nil {
			common.WriteError(c, common.WithMessage(common.ErrInvalidRequest, err.Error()))
			return
		}
		policy = p
	}

	result, err := h.searchService.ByIngredients(c.Request.Context(), req.Ingredients, policy, req.Limit)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	if result.Matches == nil {
		result.Matches = []search.IngredientMatch{}
	}

	common.LogInfo("食材搜尋完成",
		zap.String("request_id", requestid.Get(c)),
		zap.Strings("tokens", result.Tokens),
		zap.String("policy", string(result.Policy)),
		zap.Int("results", len(result.Matches)),
	)
	c.JSON(http.StatusOK, result)
}

// HandleName 依菜名搜尋
func (h *Handler) HandleName(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.Wrap(common.ErrInvalidRequest, err))
		return
	}

	matches, err := h.searchService.ByName(c.Request.Context(), req.Query)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	if matches == nil {
		matches = []search.NameMatch{}
	}
	c.JSON(http.StatusOK, NameResponse{Matches: matches, Count: len(matches)})
}

// HandleSelect 依使用者輸入的編號選擇食譜
func (h *Handler) HandleSelect(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.Wrap(common.ErrInvalidRequest, err))
		return
	}

	r, index, err := h.searchService.SelectFrom(c.Request.Context(), req.RecipeIDs, req.Choice)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, SelectResponse{Index: index, Recipe: r})
}

// HandleGet 依 id 取得食譜
func (h *Handler) HandleGet(c *gin.Context) {
	r, err := h.searchService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// HandleReload 失效快照並立即重新載入資料集
func (h *Handler) HandleReload(c *gin.Context) {
	snap, err := h.dataset.Reload(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}

	common.LogInfo("資料集已由請求重新載入",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("recipes", snap.Len()),
	)
	c.JSON(http.StatusOK, ReloadResponse{
		Recipes:  snap.Len(),
		Source:   snap.Source(),
		LoadedAt: snap.LoadedAt(),
	})
}
