package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	// Optional API key authentication; health and metrics stay open for probes.
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Skipper: func(c echo.Context) bool {
				p := c.Path()
				return p == "/v1/health" || p == "/metrics"
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/quote/:side", h.Quote) // Pure quote against given reserves

	pools := v1.Group("/pools")
	pools.GET("", h.ListPools)
	pools.GET("/:pool", h.GetPool)
	pools.GET("/:pool/reserves", h.Reserves)
	pools.GET("/:pool/quote/:side", h.PoolQuote)

	// Mutations share one limiter per client.
	mutate := pools.Group("", middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.mutationRate()),
		Burst:     cfg.mutationBurst(),
		ExpiresIn: time.Minute,
	})))
	mutate.POST("", h.CreatePool)
	mutate.POST("/:pool/liquidity", h.AddLiquidity)
	mutate.DELETE("/:pool/liquidity", h.RemoveLiquidity)

	// Analytics endpoints with rate limiting
	ag := v1.Group("/analytics")
	ag.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	ag.POST("/ask", h.Ask)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
