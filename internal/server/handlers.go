package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm/internal/analytics"
	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

// Analyst answers natural language questions about liquidity history.
type Analyst interface {
	Ask(ctx context.Context, question string) (*analytics.AskResult, error)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Manager         *exchange.Manager     // Pool registry, liquidity and pricing
	Analytics       Analyst               // Optional NL→SQL agent
	AnalyticsConfig analytics.AgentConfig // Base configuration for per-request model overrides
	Metrics         http.Handler          // Optional /metrics handler
	DevMode         bool                  // Enable detailed error responses in development
	Logger          *logrus.Logger        // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// fail reports an exchange error with its stable kind and mapped status.
func (h *Handlers) fail(c echo.Context, msg string, err error) error {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.WithError(err).WithField("path", c.Path()).Error(msg)
	}
	resp := ErrorResponse{Error: msg, Code: code, Kind: exchange.Kind(err)}
	if h.DevMode || code < http.StatusInternalServerError {
		resp.Details = err.Error()
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// key parses a base58 account field. Empty values yield fallback, or an error
// when fallback is zero.
func key(field, value string, fallback solana.PublicKey) (solana.PublicKey, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if fallback.IsZero() {
			return solana.PublicKey{}, &fieldError{field: field, msg: "required"}
		}
		return fallback, nil
	}
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, &fieldError{field: field, msg: "must be a base58 public key"}
	}
	return pk, nil
}

type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string { return e.field + ": " + e.msg }

func (h *Handlers) badField(c echo.Context, err error) error {
	fe, ok := err.(*fieldError)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid request", nil)
	}
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid " + fe.field,
		Code:    http.StatusBadRequest,
		Details: map[string]any{fe.field: fe.msg},
	})
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Ask answers natural language questions about liquidity history.
// Supports optional model override for one-off requests.
func (h *Handlers) Ask(c echo.Context) error {
	if h.Analytics == nil {
		return h.err(c, http.StatusBadRequest, "analytics is not configured", nil)
	}

	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	agent := h.Analytics
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AnalyticsConfig
		cfg.Model = m
		a, err := analytics.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create analytics agent", map[string]any{"err": err.Error()})
		}
		defer func() {
			_ = a.Close()
		}()
		agent = a
	}

	res, err := agent.Ask(ctx, req.Question)
	if errors.Is(err, analytics.ErrRejectedQuery) {
		return h.err(c, http.StatusUnprocessableEntity, "could not write a safe query for that question", map[string]any{"err": err.Error()})
	}
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "analytics ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AskResponse{
		SQL:       res.SQL,
		Answer:    res.Answer,
		Rows:      res.Rows,
		Truncated: res.Truncated,
		TookMs:    time.Since(start).Milliseconds(),
	})
}
