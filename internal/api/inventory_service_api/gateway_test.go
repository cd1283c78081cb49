package inventory_service_api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Domenick1991/rapidreserve/internal/repository"
	"github.com/Domenick1991/rapidreserve/internal/service/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway(t *testing.T) {
	mux, err := NewGateway(inventory.NewInventoryService(repository.NewMemCapacityRepository()))
	require.NoError(t, err)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/api/v1/inventory/events", `{"event_id":7,"total_capacity":10,"unit_price_cents":2500}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"available_capacity":10`)

	w = do(http.MethodPost, "/api/v1/inventory/events", `{"event_id":7,"total_capacity":10,"unit_price_cents":2500}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"already_exists"`)

	w = do(http.MethodGet, "/api/v1/inventory/events/7", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_capacity":10`)

	w = do(http.MethodGet, "/api/v1/inventory/events/8", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"not_found"`)

	w = do(http.MethodGet, "/api/v1/inventory/events/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
