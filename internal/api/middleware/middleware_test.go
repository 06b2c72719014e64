package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.POST("/echo", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	return doWithKey(r, method, path, body, "")
}

func doWithKey(r http.Handler, method, path, body, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(4))

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/echo", "abc").Code)

	w := do(r, http.MethodPost, "/echo", "too long")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestDeduplication(t *testing.T) {
	r := newEngine(Deduplication(time.Minute))

	assert.Equal(t, http.StatusNoContent, doWithKey(r, http.MethodPost, "/echo", `{"a":1}`, "k1").Code)
	w := doWithKey(r, http.MethodPost, "/echo", `{"a":1}`, "k1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")

	// 不同請求體不視為重複
	assert.Equal(t, http.StatusNoContent, doWithKey(r, http.MethodPost, "/echo", `{"a":2}`, "k1").Code)
	// 不同客戶端的相同請求
	assert.Equal(t, http.StatusNoContent, doWithKey(r, http.MethodPost, "/echo", `{"a":1}`, "k2").Code)
}

func TestDeduplicationWithoutKey(t *testing.T) {
	r := newEngine(Deduplication(time.Minute))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/echo", `{"a":1}`).Code)
	}
}

func TestDeduplicatorWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDeduplicator(time.Second)
	d.now = func() time.Time { return now }

	assert.False(t, d.Seen("POST:/next"))
	assert.True(t, d.Seen("POST:/next"))

	now = now.Add(2 * time.Second)
	assert.False(t, d.Seen("POST:/next"))

	now = now.Add(time.Minute)
	d.Seen("POST:/other")
	assert.Len(t, d.requests, 1)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }
	rl.lastTime = now

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	// 兩次各 250ms 累積出一個令牌
	now = now.Add(250 * time.Millisecond)
	assert.False(t, rl.Allow())
	now = now.Add(250 * time.Millisecond)
	assert.True(t, rl.Allow())
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimit(1, time.Hour))

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/echo", "").Code)
	w := do(r, http.MethodPost, "/echo", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := common.Logger
	common.Logger = zap.New(core)
	t.Cleanup(func() { common.Logger = prev })
	return logs
}

func TestLoggerRecordsRouteAndErrorCode(t *testing.T) {
	logs := observeLogs(t)

	r := gin.New()
	r.Use(Logger())
	r.POST("/sessions/:conversation_id/next", func(c *gin.Context) {
		common.WriteError(c, common.ErrSessionNotFound)
	})
	r.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := do(r, http.MethodPost, "/sessions/conv-9/next", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	rejected := logs.FilterMessage("請求被拒絕").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, zapcore.WarnLevel, rejected[0].Level)
	fields := rejected[0].ContextMap()
	assert.Equal(t, "/sessions/:conversation_id/next", fields["route"])
	assert.Equal(t, "conv-9", fields["conversation_id"])
	assert.Equal(t, "SESSION_NOT_FOUND", fields["error_code"])

	do(r, http.MethodGet, "/live", "")
	probes := logs.FilterMessage("探針請求").All()
	require.Len(t, probes, 1)
	assert.Equal(t, zapcore.DebugLevel, probes[0].Level)

	do(r, http.MethodGet, "/missing", "")
	assert.Equal(t, "unmatched", logs.FilterMessage("請求被拒絕").All()[1].ContextMap()["route"])
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery())

	w := do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := do(r, http.MethodGet, "/slow", "")
	assert.Equal(t, http.StatusRequestTimeout, w.Code)
	require.Contains(t, w.Body.String(), "REQUEST_TIMEOUT")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/fast", "").Code)
}
