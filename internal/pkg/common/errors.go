package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 返回原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比較，讓包裝過的錯誤仍能以 errors.Is 判斷
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Wrap 以既有錯誤類型包裝原始錯誤
func Wrap(base *CustomError, err error) *CustomError {
	return NewError(base.Code, base.Message, base.Status, err)
}

// WithMessage 以既有錯誤類型配上新的訊息
func WithMessage(base *CustomError, message string) *CustomError {
	return NewError(base.Code, message, base.Status, nil)
}

// AsCustomError 取出錯誤鏈中的 CustomError，找不到時回傳內部錯誤
func AsCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	return Wrap(ErrInternalError, err)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"   // 408
	ErrCodeConflict        = "CONFLICT"          // 409
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE" // 413

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503

	// 業務錯誤
	ErrCodeDatasetUnavailable    = "DATASET_UNAVAILABLE"
	ErrCodeNoValidIngredients    = "NO_VALID_INGREDIENTS"
	ErrCodeEmptyQuery            = "EMPTY_QUERY"
	ErrCodeInvalidSelectionIndex = "INVALID_SELECTION_INDEX"
	ErrCodeRecipeHasNoSteps      = "RECIPE_HAS_NO_STEPS"
	ErrCodeOutOfRangeRating      = "OUT_OF_RANGE_RATING"
	ErrCodeSaveFailed            = "SAVE_FAILED"
	ErrCodeRecipeNotFound        = "RECIPE_NOT_FOUND"
	ErrCodeSessionNotFound       = "SESSION_NOT_FOUND"
	ErrCodeSessionNotActive      = "SESSION_NOT_ACTIVE"
	ErrCodeNotAtLastStep         = "NOT_AT_LAST_STEP"
	ErrCodeFallbackUnavailable   = "FALLBACK_UNAVAILABLE"
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrRequestTimeout  = NewError(ErrCodeRequestTimeout, "請求超時", http.StatusRequestTimeout, nil)
	ErrConflict        = NewError(ErrCodeConflict, "資源衝突", http.StatusConflict, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)
	ErrPayloadTooLarge = NewError(ErrCodePayloadTooLarge, "請求體過大", http.StatusRequestEntityTooLarge, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheMiss          = NewError("CACHE_MISS", "緩存未命中", http.StatusNotFound, nil)

	// 業務錯誤
	ErrDatasetUnavailable    = NewError(ErrCodeDatasetUnavailable, "食譜資料集無法讀取", http.StatusServiceUnavailable, nil)
	ErrNoValidIngredients    = NewError(ErrCodeNoValidIngredients, "沒有可用的食材關鍵字，請至少輸入一個三個字母以上的食材", http.StatusBadRequest, nil)
	ErrEmptyQuery            = NewError(ErrCodeEmptyQuery, "查詢內容為空，請輸入菜名", http.StatusBadRequest, nil)
	ErrInvalidSelectionIndex = NewError(ErrCodeInvalidSelectionIndex, "選擇的編號超出範圍", http.StatusBadRequest, nil)
	ErrRecipeHasNoSteps      = NewError(ErrCodeRecipeHasNoSteps, "此食譜沒有步驟，無法開始烹飪", http.StatusUnprocessableEntity, nil)
	ErrOutOfRangeRating      = NewError(ErrCodeOutOfRangeRating, "評分必須介於 1 到 5 之間", http.StatusBadRequest, nil)
	ErrSaveFailed            = NewError(ErrCodeSaveFailed, "無法儲存紀錄", http.StatusServiceUnavailable, nil)
	ErrRecipeNotFound        = NewError(ErrCodeRecipeNotFound, "找不到食譜", http.StatusNotFound, nil)
	ErrSessionNotFound       = NewError(ErrCodeSessionNotFound, "找不到烹飪會話", http.StatusNotFound, nil)
	ErrSessionNotActive      = NewError(ErrCodeSessionNotActive, "烹飪會話已結束", http.StatusConflict, nil)
	ErrNotAtLastStep         = NewError(ErrCodeNotAtLastStep, "尚未到達最後一個步驟", http.StatusConflict, nil)
	ErrFallbackUnavailable   = NewError(ErrCodeFallbackUnavailable, "AI 備援服務不可用", http.StatusServiceUnavailable, nil)
)
