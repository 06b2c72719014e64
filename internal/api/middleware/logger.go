package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"recipe-assistant/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 探針路由只在成功時以 debug 記錄
var probePaths = map[string]bool{"/live": true, "/ready": true, "/health": true}

// Logger 存取日誌中間件，依路由樣板、對話與錯誤碼記錄每個請求
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := accessFields(c, status, time.Since(start))

		switch {
		case status >= http.StatusInternalServerError:
			common.LogError("請求失敗", fields...)
		case status >= http.StatusBadRequest:
			common.LogWarn("請求被拒絕", fields...)
		case probePaths[c.Request.URL.Path]:
			common.LogDebug("探針請求", fields...)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

func accessFields(c *gin.Context, status int, latency time.Duration) []zap.Field {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	fields := []zap.Field{
		zap.String("request_id", requestid.Get(c)),
		zap.String("method", c.Request.Method),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Int("bytes", c.Writer.Size()),
		zap.Duration("latency", latency),
		zap.String("client_ip", c.ClientIP()),
	}
	if id := c.Param("conversation_id"); id != "" {
		fields = append(fields, zap.String("conversation_id", id))
	}
	if id := c.Param("id"); id != "" {
		fields = append(fields, zap.String("recipe_id", id))
	}
	if code := c.GetString(common.ErrorCodeKey); code != "" {
		fields = append(fields, zap.String("error_code", code))
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
	}
	return fields
}

// Recovery 攔截 panic 並回傳 INTERNAL_ERROR
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				common.LogError("處理請求時發生 panic",
					zap.Any("panic", rec),
					zap.String("route", c.FullPath()),
					zap.String("method", c.Request.Method),
					zap.ByteString("stack", debug.Stack()),
				)
				common.WriteError(c, common.ErrInternalError)
			}
		}()

		c.Next()
	}
}
