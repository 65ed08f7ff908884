package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

// CreatePool registers a new pool and returns its record.
func (h *Handlers) CreatePool(c echo.Context) error {
	var req CreatePoolRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	var (
		p   exchange.CreatePoolParams
		err error
	)
	zero := solana.PublicKey{}
	if p.Factory, err = key("factory", req.Factory, zero); err != nil {
		return h.badField(c, err)
	}
	if p.TokenA, err = key("token_a", req.TokenA, zero); err != nil {
		return h.badField(c, err)
	}
	if p.TokenB, err = key("token_b", req.TokenB, zero); err != nil {
		return h.badField(c, err)
	}
	if p.TokenC, err = key("token_c", req.TokenC, zero); err != nil {
		return h.badField(c, err)
	}
	if req.ReserveA != "" {
		if p.ReserveA, err = key("reserve_a", req.ReserveA, zero); err != nil {
			return h.badField(c, err)
		}
	}
	if req.ReserveB != "" {
		if p.ReserveB, err = key("reserve_b", req.ReserveB, zero); err != nil {
			return h.badField(c, err)
		}
	}
	if strings.TrimSpace(req.Fee) != "" {
		if p.Fee, err = exchange.ParseFee(req.Fee); err != nil {
			return h.fail(c, "invalid fee", err)
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pool, err := h.Manager.CreatePool(ctx, p)
	if err != nil {
		return h.fail(c, "failed to create pool", err)
	}
	return c.JSON(http.StatusCreated, pool)
}

// ListPools returns every pool, or the single pool a factory created for
// token_a/token_b when those query parameters are set.
func (h *Handlers) ListPools(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if c.QueryParam("token_a") != "" || c.QueryParam("token_b") != "" {
		zero := solana.PublicKey{}
		factory, err := key("factory", c.QueryParam("factory"), zero)
		if err != nil {
			return h.badField(c, err)
		}
		a, err := key("token_a", c.QueryParam("token_a"), zero)
		if err != nil {
			return h.badField(c, err)
		}
		b, err := key("token_b", c.QueryParam("token_b"), zero)
		if err != nil {
			return h.badField(c, err)
		}
		pool, err := h.Manager.PoolByTokens(ctx, factory, a, b)
		if err != nil {
			return h.fail(c, "failed to find pool", err)
		}
		return c.JSON(http.StatusOK, map[string]any{"items": []*exchange.Exchange{pool}})
	}

	items, err := h.Manager.Pools(ctx)
	if err != nil {
		return h.fail(c, "failed to list pools", err)
	}
	if items == nil {
		items = []*exchange.Exchange{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// GetPool returns one pool record.
func (h *Handlers) GetPool(c echo.Context) error {
	id, err := key("pool", c.Param("pool"), solana.PublicKey{})
	if err != nil {
		return h.badField(c, err)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	pool, err := h.Manager.Pool(ctx, id)
	if err != nil {
		return h.fail(c, "failed to get pool", err)
	}
	return c.JSON(http.StatusOK, pool)
}

// Reserves returns the pool's live reserve balances from the ledger.
func (h *Handlers) Reserves(c echo.Context) error {
	id, err := key("pool", c.Param("pool"), solana.PublicKey{})
	if err != nil {
		return h.badField(c, err)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	a, b, err := h.Manager.Reserves(ctx, id)
	if err != nil {
		return h.fail(c, "failed to read reserves", err)
	}
	return c.JSON(http.StatusOK, ReservesResponse{Pool: id.String(), ReserveA: a, ReserveB: b})
}

// AddLiquidity deposits both assets and mints shares to the caller.
//
// The API is custodial. Any client holding the API key may name any
// authority; the exchange only checks that the authority owns the accounts
// it spends. The solana ledger additionally signs only for keys the server
// holds (AUTHORITY_PRIVATE_KEY and SIGNER_PRIVATE_KEYS). The memory ledger
// signs for anyone, so run it behind an API key or in DEV_MODE.
func (h *Handlers) AddLiquidity(c echo.Context) error {
	id, err := key("pool", c.Param("pool"), solana.PublicKey{})
	if err != nil {
		return h.badField(c, err)
	}
	var req AddLiquidityRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 90*time.Second)
	defer cancel()

	pool, err := h.Manager.Pool(ctx, id)
	if err != nil {
		return h.fail(c, "failed to get pool", err)
	}

	p := exchange.AddLiquidityParams{
		Pool:          id,
		MaxAmountA:    req.MaxAmountA,
		AmountB:       req.AmountB,
		MinLiquidityC: req.MinLiquidityC,
		Deadline:      req.Deadline,
	}
	zero := solana.PublicKey{}
	fields := []struct {
		name     string
		value    string
		fallback solana.PublicKey
		dst      *solana.PublicKey
	}{
		{"authority", req.Authority, zero, &p.Authority},
		{"from_a", req.FromA, zero, &p.FromA},
		{"from_b", req.FromB, zero, &p.FromB},
		{"to_a", req.ToA, pool.ReserveA, &p.ToA},
		{"to_b", req.ToB, pool.ReserveB, &p.ToB},
		{"mint", req.Mint, pool.TokenC, &p.Mint},
		{"to_c", req.ToC, zero, &p.ToC},
	}
	for _, f := range fields {
		if *f.dst, err = key(f.name, f.value, f.fallback); err != nil {
			return h.badField(c, err)
		}
	}

	res, err := h.Manager.AddLiquidity(ctx, p)
	if err != nil {
		return h.fail(c, "failed to add liquidity", err)
	}
	return c.JSON(http.StatusOK, res)
}

// RemoveLiquidity burns the caller's shares and pays out both assets. The
// authority is trusted the same way as in AddLiquidity.
func (h *Handlers) RemoveLiquidity(c echo.Context) error {
	id, err := key("pool", c.Param("pool"), solana.PublicKey{})
	if err != nil {
		return h.badField(c, err)
	}
	var req RemoveLiquidityRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 90*time.Second)
	defer cancel()

	pool, err := h.Manager.Pool(ctx, id)
	if err != nil {
		return h.fail(c, "failed to get pool", err)
	}

	p := exchange.RemoveLiquidityParams{
		Pool:       id,
		AmountC:    req.AmountC,
		MinAmountA: req.MinAmountA,
		MinAmountB: req.MinAmountB,
		Deadline:   req.Deadline,
	}
	zero := solana.PublicKey{}
	fields := []struct {
		name     string
		value    string
		fallback solana.PublicKey
		dst      *solana.PublicKey
	}{
		{"authority", req.Authority, zero, &p.Authority},
		{"from_a", req.FromA, pool.ReserveA, &p.FromA},
		{"from_b", req.FromB, pool.ReserveB, &p.FromB},
		{"to_a", req.ToA, zero, &p.ToA},
		{"to_b", req.ToB, zero, &p.ToB},
		{"mint", req.Mint, pool.TokenC, &p.Mint},
		{"from_c", req.FromC, zero, &p.FromC},
	}
	for _, f := range fields {
		if *f.dst, err = key(f.name, f.value, f.fallback); err != nil {
			return h.badField(c, err)
		}
	}

	res, err := h.Manager.RemoveLiquidity(ctx, p)
	if err != nil {
		return h.fail(c, "failed to remove liquidity", err)
	}
	return c.JSON(http.StatusOK, res)
}
