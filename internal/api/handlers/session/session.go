package session

import (
	"context"
	"errors"
	"io"
	"net/http"

	"recipe-assistant/internal/core/cooking"
	"recipe-assistant/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StartRequest 開始烹飪請求
type StartRequest struct {
	RecipeID string `json:"recipe_id" binding:"required"`
}

// CompleteRequest 完成烹飪請求，rating 可省略
type CompleteRequest struct {
	Rating *int `json:"rating,omitempty"`
}

// Handler 引導式烹飪處理器
type Handler struct {
	sessions *cooking.Service
}

// NewHandler 創建烹飪處理器
func NewHandler(sessions *cooking.Service) *Handler {
	return &Handler{sessions: sessions}
}

// Register 註冊 /sessions/:conversation_id 路由
func (h *Handler) Register(group *gin.RouterGroup) {
	group.POST("/start", h.HandleStart)
	group.GET("/current", h.HandleCurrent)
	group.POST("/next", h.HandleNext)
	group.POST("/previous", h.HandlePrevious)
	group.POST("/abandon", h.HandleAbandon)
	group.POST("/complete", h.HandleComplete)
	group.DELETE("", h.HandleForget)
}

// HandleStart 開始新的烹飪會話
func (h *Handler) HandleStart(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.Wrap(common.ErrInvalidRequest, err))
		return
	}

	view, err := h.sessions.Begin(c.Request.Context(), c.Param("conversation_id"), req.RecipeID)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	common.LogInfo("烹飪會話開始",
		zap.String("request_id", requestid.Get(c)),
		zap.String("conversation_id", view.ConversationID),
		zap.String("recipe_id", view.RecipeID),
	)
	c.JSON(http.StatusCreated, view)
}

// HandleCurrent 重複目前步驟，不改變狀態
func (h *Handler) HandleCurrent(c *gin.Context) {
	h.respond(c, h.sessions.Current)
}

// HandleNext 前往下一步
func (h *Handler) HandleNext(c *gin.Context) {
	h.respond(c, h.sessions.Next)
}

// HandlePrevious 回到上一步
func (h *Handler) HandlePrevious(c *gin.Context) {
	h.respond(c, h.sessions.Previous)
}

// HandleAbandon 放棄目前會話
func (h *Handler) HandleAbandon(c *gin.Context) {
	h.respond(c, h.sessions.Abandon)
}

// HandleComplete 在最後一步完成烹飪並記錄
func (h *Handler) HandleComplete(c *gin.Context) {
	var req CompleteRequest
	// 請求體可為空
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.WriteError(c, common.Wrap(common.ErrInvalidRequest, err))
		return
	}

	result, err := h.sessions.Complete(c.Request.Context(), c.Param("conversation_id"), req.Rating)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	if !result.Saved {
		common.LogWarn("完成紀錄未儲存",
			zap.String("request_id", requestid.Get(c)),
			zap.String("conversation_id", result.Session.ConversationID),
			zap.String("warning", result.Warning),
		)
	}
	c.JSON(http.StatusOK, result)
}

// HandleForget 刪除對話的會話紀錄
func (h *Handler) HandleForget(c *gin.Context) {
	if err := h.sessions.Forget(c.Request.Context(), c.Param("conversation_id")); err != nil {
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respond(c *gin.Context, op func(ctx context.Context, conversationID string) (cooking.View, error)) {
	view, err := op(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
