package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

const (
	sideInput  = "input"
	sideOutput = "output"

	directionAToB = "a_to_b"
	directionBToA = "b_to_a"
)

type quoteQuery struct {
	exactIn     bool
	amount      uint64
	reserveIn   *uint64
	reserveOut  *uint64
	slippageBps *uint16
}

func (h *Handlers) parseQuote(c echo.Context) (*quoteQuery, error) {
	q := &quoteQuery{}
	switch c.Param("side") {
	case sideInput:
		q.exactIn = true
	case sideOutput:
	default:
		return nil, &fieldError{field: "side", msg: "must be input or output"}
	}

	amountStr := strings.TrimSpace(c.QueryParam("amount"))
	if amountStr == "" {
		return nil, &fieldError{field: "amount", msg: "required"}
	}
	n, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		return nil, &fieldError{field: "amount", msg: "must be uint64"}
	}
	q.amount = n

	for _, p := range []struct {
		name string
		dst  **uint64
	}{
		{"reserveIn", &q.reserveIn},
		{"reserveOut", &q.reserveOut},
	} {
		v := strings.TrimSpace(c.QueryParam(p.name))
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, &fieldError{field: p.name, msg: "must be uint64"}
		}
		*p.dst = &n
	}

	if v := strings.TrimSpace(c.QueryParam("slippageBps")); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil || n > 10000 {
			return nil, &fieldError{field: "slippageBps", msg: "must be 0..10000"}
		}
		bps := uint16(n)
		q.slippageBps = &bps
	}
	return q, nil
}

func (q *quoteQuery) respond(quote *exchange.Quote) QuoteResponse {
	resp := QuoteResponse{Quote: quote}
	if q.slippageBps == nil {
		return resp
	}
	if quote.ExactInput {
		resp.MinAmountOut = exchange.ApplySlippage(quote.AmountOut, *q.slippageBps)
	} else {
		resp.MaxAmountIn = exchange.ApplySlippageUp(quote.AmountIn, *q.slippageBps)
	}
	return resp
}

// PoolQuote prices an exchange against a pool with the pool's fee and caches
// the result on the pool. Reserves default to the pool's live balances in the
// requested direction (a_to_b unless direction=b_to_a).
func (h *Handlers) PoolQuote(c echo.Context) error {
	id, err := key("pool", c.Param("pool"), solana.PublicKey{})
	if err != nil {
		return h.badField(c, err)
	}
	q, err := h.parseQuote(c)
	if err != nil {
		return h.badField(c, err)
	}
	direction := strings.TrimSpace(c.QueryParam("direction"))
	if direction == "" {
		direction = directionAToB
	}
	if direction != directionAToB && direction != directionBToA {
		return h.badField(c, &fieldError{field: "direction", msg: "must be a_to_b or b_to_a"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if q.reserveIn == nil || q.reserveOut == nil {
		a, b, err := h.Manager.Reserves(ctx, id)
		if err != nil {
			return h.fail(c, "failed to read reserves", err)
		}
		in, out := a, b
		if direction == directionBToA {
			in, out = b, a
		}
		if q.reserveIn == nil {
			q.reserveIn = &in
		}
		if q.reserveOut == nil {
			q.reserveOut = &out
		}
	}

	var quote *exchange.Quote
	if q.exactIn {
		quote, err = h.Manager.QuoteExactInput(ctx, id, q.amount, *q.reserveIn, *q.reserveOut)
	} else {
		quote, err = h.Manager.QuoteExactOutput(ctx, id, q.amount, *q.reserveIn, *q.reserveOut)
	}
	if err != nil {
		return h.fail(c, "quote failed", err)
	}
	return c.JSON(http.StatusOK, q.respond(quote))
}

// Quote prices an exchange against caller-supplied reserves without touching
// any pool. The fee defaults to the exchange default.
func (h *Handlers) Quote(c echo.Context) error {
	q, err := h.parseQuote(c)
	if err != nil {
		return h.badField(c, err)
	}
	if q.reserveIn == nil {
		return h.badField(c, &fieldError{field: "reserveIn", msg: "required"})
	}
	if q.reserveOut == nil {
		return h.badField(c, &fieldError{field: "reserveOut", msg: "required"})
	}

	fee := h.Manager.DefaultFee()
	if v := strings.TrimSpace(c.QueryParam("fee")); v != "" {
		if fee, err = exchange.ParseFee(v); err != nil {
			return h.fail(c, "invalid fee", err)
		}
	}

	quote, err := exchange.Price(q.exactIn, q.amount, *q.reserveIn, *q.reserveOut, fee)
	if err != nil {
		return h.fail(c, "quote failed", err)
	}
	return c.JSON(http.StatusOK, q.respond(quote))
}
