package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// ErrorCodeKey WriteError 在 gin.Context 中記錄錯誤碼的鍵
const ErrorCodeKey = "error_code"

// WriteError 將錯誤寫成統一的 JSON 錯誤響應
func WriteError(c *gin.Context, err error) {
	ce := AsCustomError(err)
	status := ce.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	resp := ErrorResponse{
		Code:    ce.Code,
		Message: ce.Message,
	}
	if gin.Mode() == gin.DebugMode && ce.Err != nil {
		resp.Details = ce.Err.Error()
	}

	if status >= http.StatusInternalServerError {
		LogError("請求處理失敗",
			zap.String("code", ce.Code),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	_ = c.Error(errors.New(ce.Error()))
	c.Set(ErrorCodeKey, ce.Code)
	c.AbortWithStatusJSON(status, resp)
}
