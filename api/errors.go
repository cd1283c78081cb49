package api

import (
	"net/http"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// httpStatus maps the stable error code onto a status. Clients tell "retry
// later" (503) from "never" (409/404/400) by it.
func httpStatus(code string) int {
	switch code {
	case "not_found":
		return http.StatusNotFound
	case "invalid_argument":
		return http.StatusBadRequest
	case "insufficient_capacity", "invalid_state_transition", "already_cancelled", "concurrent_update", "already_exists":
		return http.StatusConflict
	case "upstream_unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := domain.Code(err)
	msg := err.Error()
	if code == "internal_error" {
		msg = "internal error"
	}
	if code == "internal_error" || code == "internal_consistency" {
		_ = c.Error(err)
	}
	c.JSON(httpStatus(code), errorResponse{Error: msg, Code: code})
}
