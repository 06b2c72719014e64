package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recipe-assistant/internal/core/ai/provider"
	recipeAI "recipe-assistant/internal/core/ai/service"
	"recipe-assistant/internal/core/cooking"
	"recipe-assistant/internal/core/history"
	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/core/search"
	"recipe-assistant/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetCSV = "id;titulo;categoria;dificuldade;tempo_total;calorias;rating;porcoes;ingredientes;passos;criterios;imagem\n" +
	"1;Bolo de Chocolate;Sobremesa;Fácil;1 h 10 m;450 kcal;4,7;8;200 g farinha|3 ovos|100 g chocolate;Misturar|Levar ao forno;Vegetariano;\n" +
	"2;Sopa de Legumes;Entrada;Muito fácil;30 min;120 kcal;4,1;4;2 batatas|1 cenoura;Cortar|Cozer|Triturar;Vegan|Sem glúten;\n" +
	"4;Bacalhau à Brás;Prato Principal;Médio;45 minutos;600;4,9;4;bacalhau|batata palha|ovos;Desfiar|Fritar|Envolver;;\n"

type stubProvider struct {
	calls int
}

func (p *stubProvider) Generate(context.Context, *provider.Request) (*provider.Response, error) {
	p.calls++
	return &provider.Response{Content: "Arroz doce rápido", Model: "stub"}, nil
}

func (p *stubProvider) GetModel() string { return "stub" }

func (p *stubProvider) GetTimeout() time.Duration { return time.Second }

type testServer struct {
	router   *gin.Engine
	provider *stubProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	path := filepath.Join(dir, "recipes.csv")
	require.NoError(t, os.WriteFile(path, []byte(datasetCSV), 0o644))

	store := recipe.NewStore(recipe.NewCSVSource(path), 0)
	searchSvc := search.NewService(store, search.DefaultOptions())

	logStore, err := history.NewCSVStore(filepath.Join(dir, "history"))
	require.NoError(t, err)
	log := history.NewLog(logStore)

	p := &stubProvider{}
	cfg := &config.Config{
		App: config.AppConfig{Version: "test"},
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			MaxBodySize:    1 << 20,
		},
	}

	router, err := SetupRouter(cfg, Services{
		Dataset:  store,
		Search:   searchSvc,
		Sessions: cooking.NewService(cooking.NewMemoryStore(), searchSvc, log),
		History:  log,
		Fallback: recipeAI.NewService(p, nil),
	})
	require.NoError(t, err)
	return &testServer{router: router, provider: p}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	return s.doWithHeaders(t, method, path, body, nil)
}

func (s *testServer) doWithHeaders(t *testing.T, method, path, body string, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestSetupRouterRequiresServices(t *testing.T) {
	_, err := SetupRouter(&config.Config{}, Services{})
	assert.Error(t, err)
}

func TestSearchRoutes(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/recipes/search", `{"criteria":{"category":"sobremesa"}}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])
	assert.Nil(t, body["fallback"])

	// 沒有結果時使用備援
	code, body = s.do(t, http.MethodPost, "/api/v1/recipes/search", `{"criteria":{"category":"sobremesa","duration":"ate 30 min"}}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["count"])
	fallback, ok := body["fallback"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Arroz doce rápido", fallback["text"])
	assert.Equal(t, 1, s.provider.calls)

	code, body = s.do(t, http.MethodPost, "/api/v1/recipes/search", `{"criteria":{"category":"sobremesa","duration":"ate 30 min"},"fallback":false}`)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, body["fallback"])
	assert.Equal(t, 1, s.provider.calls)

	code, body = s.do(t, http.MethodPost, "/api/v1/recipes/ingredients", `{"ingredients":["batata","ovo"]}`)
	require.Equal(t, http.StatusOK, code)
	matches := body["matches"].([]interface{})
	require.Len(t, matches, 1)
	assert.Equal(t, "4", matches[0].(map[string]interface{})["recipe"].(map[string]interface{})["id"])

	code, body = s.do(t, http.MethodPost, "/api/v1/recipes/ingredients", `{"ingredients":["ovo"],"policy":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", body["code"])

	code, body = s.do(t, http.MethodPost, "/api/v1/recipes/ingredients", `{"ingredients":["a","de"]}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "NO_VALID_INGREDIENTS", body["code"])

	code, body = s.do(t, http.MethodPost, "/api/v1/recipes/name", `{"query":"bolo de chocolate"}`)
	require.Equal(t, http.StatusOK, code)
	first := body["matches"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "1", first["recipe"].(map[string]interface{})["id"])

	code, body = s.do(t, http.MethodPost, "/api/v1/recipes/name", `{"query":"  "}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "EMPTY_QUERY", body["code"])

	code, body = s.do(t, http.MethodPost, "/api/v1/recipes/select", `{"recipe_ids":["4","1"],"choice":"a segunda"}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["index"])
	assert.Equal(t, "1", body["recipe"].(map[string]interface{})["id"])

	code, body = s.do(t, http.MethodPost, "/api/v1/recipes/select", `{"recipe_ids":["4","1"],"choice":"receita 9"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_SELECTION_INDEX", body["code"])

	code, body = s.do(t, http.MethodGet, "/api/v1/recipes/2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Sopa de Legumes", body["title"])

	code, body = s.do(t, http.MethodGet, "/api/v1/recipes/99", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "RECIPE_NOT_FOUND", body["code"])
}

func TestCookingSessionRoutes(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/sessions/conv-1"

	code, body := s.do(t, http.MethodPost, base+"/start", `{"recipe_id":"1"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "on_step", body["state"])
	assert.EqualValues(t, 1, body["step"])
	assert.EqualValues(t, 2, body["total_steps"])
	assert.Equal(t, "Misturar", body["step_text"])

	_, body = s.do(t, http.MethodPost, base+"/previous", "")
	assert.Equal(t, "already_first", body["outcome"])

	_, body = s.do(t, http.MethodPost, base+"/next", "")
	assert.Equal(t, "moved", body["outcome"])
	assert.EqualValues(t, 2, body["step"])

	_, body = s.do(t, http.MethodPost, base+"/next", "")
	assert.Equal(t, "already_last", body["outcome"])
	assert.EqualValues(t, 2, body["step"])

	code, body = s.do(t, http.MethodGet, base+"/current", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Levar ao forno", body["step_text"])

	code, body = s.do(t, http.MethodPost, base+"/complete", `{"rating":6}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "OUT_OF_RANGE_RATING", body["code"])

	code, body = s.do(t, http.MethodPost, base+"/complete", `{"rating":5}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["saved"])
	assert.Equal(t, "completed", body["session"].(map[string]interface{})["state"])

	code, body = s.do(t, http.MethodPost, base+"/next", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SESSION_NOT_ACTIVE", body["code"])

	code, body = s.do(t, http.MethodGet, "/api/v1/sessions/unknown/current", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "SESSION_NOT_FOUND", body["code"])

	code, body = s.do(t, http.MethodGet, "/api/v1/recents?limit=5", "")
	require.Equal(t, http.StatusOK, code)
	entries := body["entries"].([]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].(map[string]interface{})["id"])
	assert.EqualValues(t, 5, entries[0].(map[string]interface{})["user_rating"])

	code, body = s.do(t, http.MethodGet, "/api/v1/recents?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodGet, "/api/v1/history/summary", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["empty"])
	assert.EqualValues(t, 1, body["total_completed"])
}

func TestAbandonRoute(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/sessions/conv-2"

	code, _ := s.do(t, http.MethodPost, base+"/start", `{"recipe_id":"2"}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := s.do(t, http.MethodPost, base+"/abandon", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "abandoned", body["state"])
	assert.EqualValues(t, 0, body["step"])

	code, body = s.do(t, http.MethodPost, base+"/complete", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SESSION_NOT_ACTIVE", body["code"])
}

func TestForgetSessionRoute(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/sessions/conv-3"

	code, _ := s.do(t, http.MethodPost, base+"/start", `{"recipe_id":"2"}`)
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, code)

	code, body := s.do(t, http.MethodGet, base+"/current", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "SESSION_NOT_FOUND", body["code"])

	code, _ = s.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRepeatedRequestsWithDefaultDedupWindow(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/sessions/conv-4"

	code, _ := s.do(t, http.MethodPost, base+"/start", `{"recipe_id":"2"}`)
	require.Equal(t, http.StatusCreated, code)

	// next → previous → next 在同一秒內都必須生效
	steps := []struct {
		path string
		want float64
	}{
		{"/next", 2},
		{"/previous", 1},
		{"/next", 2},
		{"/next", 3},
	}
	for _, st := range steps {
		code, body := s.do(t, http.MethodPost, base+st.path, "")
		require.Equal(t, http.StatusOK, code, st.path)
		assert.Equal(t, st.want, body["step"], st.path)
	}

	// 不同對話送出相同的搜尋
	search := `{"criteria":{"category":"entrada"}}`
	for _, id := range []string{"conv-a", "conv-b"} {
		code, _ := s.doWithHeaders(t, http.MethodPost, "/api/v1/recipes/search", search, map[string]string{"X-Request-ID": id})
		assert.Equal(t, http.StatusOK, code, id)
	}

	// 相同 Idempotency-Key 的重送才會被擋下
	key := map[string]string{"Idempotency-Key": "tap-1"}
	code, _ = s.doWithHeaders(t, http.MethodPost, base+"/previous", "", key)
	require.Equal(t, http.StatusOK, code)
	code, body := s.doWithHeaders(t, http.MethodPost, base+"/previous", "", key)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "TOO_MANY_REQUESTS", body["code"])

	_, body = s.do(t, http.MethodGet, base+"/current", "")
	assert.EqualValues(t, 2, body["step"])
}

func TestFavoriteRoutes(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/favorites", `{"recipe_id":"2"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, body["changed"])

	code, body = s.do(t, http.MethodPost, "/api/v1/favorites", `{"recipe_id":"2"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["changed"])

	code, body = s.do(t, http.MethodGet, "/api/v1/favorites", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	_, body = s.do(t, http.MethodGet, "/api/v1/favorites/2", "")
	assert.Equal(t, true, body["favorite"])

	_, body = s.do(t, http.MethodPost, "/api/v1/favorites/2/toggle", "")
	assert.Equal(t, false, body["favorite"])

	_, body = s.do(t, http.MethodDelete, "/api/v1/favorites/2", "")
	assert.Equal(t, false, body["changed"])

	_, body = s.do(t, http.MethodPost, "/api/v1/favorites/4/toggle", "")
	assert.Equal(t, true, body["favorite"])
	_, body = s.do(t, http.MethodDelete, "/api/v1/favorites/4", "")
	assert.Equal(t, true, body["changed"])

	code, body = s.do(t, http.MethodPost, "/api/v1/favorites", `{"recipe_id":"99"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "RECIPE_NOT_FOUND", body["code"])

	_, body = s.do(t, http.MethodGet, "/api/v1/history/summary", "")
	assert.Equal(t, true, body["empty"])
	assert.EqualValues(t, 0, body["favorites"])
}

func TestHealthAndReload(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/live", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body["status"])

	code, body = s.do(t, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["recipes"])

	code, body = s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	dataset := body["dataset"].(map[string]interface{})
	assert.Equal(t, true, dataset["loaded"])
	assert.EqualValues(t, 0, body["active_sessions"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/sessions/conv-h/start", `{"recipe_id":"2"}`)
	require.Equal(t, http.StatusCreated, code)
	_, body = s.do(t, http.MethodGet, "/health", "")
	assert.EqualValues(t, 1, body["active_sessions"])

	code, body = s.do(t, http.MethodPost, "/api/v1/admin/dataset/reload", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["recipes"])
}

func TestReadyFailsWithoutDataset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := recipe.NewStore(recipe.NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")), 0)
	searchSvc := search.NewService(store, search.DefaultOptions())
	logStore, err := history.NewCSVStore(t.TempDir())
	require.NoError(t, err)
	log := history.NewLog(logStore)

	router, err := SetupRouter(&config.Config{
		Server: config.ServerConfig{RequestTimeout: time.Second, MaxBodySize: 1024},
	}, Services{
		Dataset:  store,
		Search:   searchSvc,
		Sessions: cooking.NewService(cooking.NewMemoryStore(), searchSvc, log),
		History:  log,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "DATASET_UNAVAILABLE")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}
