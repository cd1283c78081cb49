package inventory_service_api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/Domenick1991/rapidreserve/internal/service/inventory"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type registerEventRequest struct {
	EventID        int64 `json:"event_id"`
	TotalCapacity  int   `json:"total_capacity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

type gateway struct {
	ledger inventory.LedgerUseCase
}

// NewGateway builds the HTTP surface of the inventory service: snapshot reads
// and administrative capacity registration.
func NewGateway(ledger inventory.LedgerUseCase) (*runtime.ServeMux, error) {
	g := &gateway{ledger: ledger}
	mux := runtime.NewServeMux()

	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodGet, "/api/v1/inventory/events/{event_id}", g.snapshot},
		{http.MethodPost, "/api/v1/inventory/events", g.register},
		{http.MethodGet, "/health", g.health},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.handler); err != nil {
			return nil, fmt.Errorf("register %s %s: %w", r.method, r.pattern, err)
		}
	}
	return mux, nil
}

func (g *gateway) snapshot(w http.ResponseWriter, r *http.Request, params map[string]string) {
	eventID, err := strconv.ParseInt(params["event_id"], 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: event id %q", domain.ErrInvalidArgument, params["event_id"]))
		return
	}

	c, err := g.ledger.Snapshot(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (g *gateway) register(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req registerEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
		return
	}

	c, err := g.ledger.RegisterEvent(r.Context(), req.EventID, req.TotalCapacity, req.UnitPriceCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (g *gateway) health(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, runtime.HTTPStatusFromCode(statusCode(err)), map[string]string{
		"error": err.Error(),
		"code":  domain.Code(err),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
