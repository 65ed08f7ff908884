package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

// statusByKind maps exchange error codes to HTTP statuses.
var statusByKind = map[string]int{
	"expired_deadline":     http.StatusBadRequest,
	"asset_mismatch":       http.StatusBadRequest,
	"invalid_amount":       http.StatusBadRequest,
	"invalid_pool":         http.StatusBadRequest,
	"invalid_fee":          http.StatusBadRequest,
	"unauthorized":         http.StatusForbidden,
	"pool_not_found":       http.StatusNotFound,
	"pool_exists":          http.StatusConflict,
	"empty_reserve":        http.StatusUnprocessableEntity,
	"empty_pool":           http.StatusUnprocessableEntity,
	"slippage_exceeded":    http.StatusUnprocessableEntity,
	"insufficient_reserve": http.StatusUnprocessableEntity,
	"arithmetic_overflow":  http.StatusUnprocessableEntity,
	"ledger_call_failed":   http.StatusBadGateway,
}

// StatusFor returns the HTTP status for an exchange error.
func StatusFor(err error) int {
	if code, ok := statusByKind[exchange.Kind(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}
