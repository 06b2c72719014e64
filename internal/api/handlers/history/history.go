package history

import (
	"context"
	"net/http"
	"strconv"

	"recipe-assistant/internal/core/history"
	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 未指定 limit 時回傳的最近紀錄筆數
const defaultRecentsLimit = 10

// RecipeResolver 依 id 取得食譜
type RecipeResolver interface {
	Get(ctx context.Context, id string) (recipe.Recipe, error)
}

// FavoriteRequest 加入收藏請求
type FavoriteRequest struct {
	RecipeID string `json:"recipe_id" binding:"required"`
}

// FavoriteStatus 收藏狀態
type FavoriteStatus struct {
	RecipeID string `json:"recipe_id"`
	Favorite bool   `json:"favorite"`
	Changed  bool   `json:"changed"`
}

// EntriesResponse 紀錄列表
type EntriesResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}

// Handler 收藏與最近紀錄處理器
type Handler struct {
	log     *history.Log
	recipes RecipeResolver
}

// NewHandler 創建紀錄處理器
func NewHandler(log *history.Log, recipes RecipeResolver) *Handler {
	return &Handler{log: log, recipes: recipes}
}

// HandleListFavorites 列出收藏
func (h *Handler) HandleListFavorites(c *gin.Context) {
	entries, err := h.log.Favorites(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEntriesResponse(entries))
}

// HandleAddFavorite 加入收藏，重複加入不會產生新紀錄
func (h *Handler) HandleAddFavorite(c *gin.Context) {
	var req FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.Wrap(common.ErrInvalidRequest, err))
		return
	}

	r, err := h.recipes.Get(c.Request.Context(), req.RecipeID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	added, err := h.log.AddFavorite(c.Request.Context(), r)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, FavoriteStatus{RecipeID: r.ID, Favorite: true, Changed: added})
}

// HandleRemoveFavorite 移除收藏，Changed 為 false 表示原本就不是收藏
func (h *Handler) HandleRemoveFavorite(c *gin.Context) {
	id := c.Param("id")
	removed, err := h.log.RemoveFavorite(c.Request.Context(), id)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, FavoriteStatus{RecipeID: id, Favorite: false, Changed: removed})
}

// HandleToggleFavorite 切換收藏狀態
func (h *Handler) HandleToggleFavorite(c *gin.Context) {
	r, err := h.recipes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	favorite, err := h.log.ToggleFavorite(c.Request.Context(), r)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	common.LogInfo("收藏狀態切換",
		zap.String("request_id", requestid.Get(c)),
		zap.String("recipe_id", r.ID),
		zap.Bool("favorite", favorite),
	)
	c.JSON(http.StatusOK, FavoriteStatus{RecipeID: r.ID, Favorite: favorite, Changed: true})
}

// HandleIsFavorite 查詢是否為收藏
func (h *Handler) HandleIsFavorite(c *gin.Context) {
	id := c.Param("id")
	favorite, err := h.log.IsFavorite(c.Request.Context(), id)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, FavoriteStatus{RecipeID: id, Favorite: favorite})
}

// HandleRecents 最近完成的食譜，由新到舊
func (h *Handler) HandleRecents(c *gin.Context) {
	limit := defaultRecentsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			common.WriteError(c, common.WithMessage(common.ErrInvalidRequest, "limit 必須為非負整數"))
			return
		}
		limit = n
	}

	entries, err := h.log.Recents(c.Request.Context(), limit)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEntriesResponse(entries))
}

// HandleSummary 紀錄統計
func (h *Handler) HandleSummary(c *gin.Context) {
	summary, err := h.log.Summary(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func newEntriesResponse(entries []history.Entry) EntriesResponse {
	if entries == nil {
		entries = []history.Entry{}
	}
	return EntriesResponse{Entries: entries, Count: len(entries)}
}
