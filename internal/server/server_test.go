package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-amm/internal/analytics"
	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
	"github.com/aman-zulfiqar/solana-amm/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm/internal/metrics"
	"github.com/aman-zulfiqar/solana-amm/internal/registry"
)

type stubAnalyst struct {
	res *analytics.AskResult
	err error
	got string
}

func (s *stubAnalyst) Ask(_ context.Context, q string) (*analytics.AskResult, error) {
	s.got = q
	return s.res, s.err
}

type testEnv struct {
	e       *echo.Echo
	ledger  *ledger.Memory
	manager *exchange.Manager

	factory, tokenA, tokenB, tokenC solana.PublicKey
	user, userA, userB, userC       solana.PublicKey
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestEnv(t *testing.T, cfg ServerConfig, mod ...func(*Handlers)) *testEnv {
	t.Helper()
	env := &testEnv{
		ledger:  ledger.NewMemory(),
		factory: newKey(),
		tokenA:  newKey(),
		tokenB:  newKey(),
		tokenC:  newKey(),
		user:    newKey(),
		userA:   newKey(),
		userB:   newKey(),
		userC:   newKey(),
	}

	reg := prometheus.NewRegistry()
	m, err := exchange.NewManager(exchange.ManagerConfig{
		ProgramID: newKey(),
		Store:     registry.NewMemory(),
		Ledger:    env.ledger,
		Observer:  metrics.New(reg),
		Log:       quietLogger(),
	})
	require.NoError(t, err)
	env.manager = m

	h := &Handlers{
		Manager: m,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		DevMode: cfg.DevMode,
		Logger:  quietLogger(),
	}
	for _, f := range mod {
		f(h)
	}
	s, err := NewServer(ServerDeps{Handlers: h, Config: cfg})
	require.NoError(t, err)
	env.e = s.Handler()

	require.NoError(t, env.ledger.CreateAccount(env.userA, env.tokenA, env.user, 1_000_000))
	require.NoError(t, env.ledger.CreateAccount(env.userB, env.tokenB, env.user, 1_000_000))
	require.NoError(t, env.ledger.CreateAccount(env.userC, env.tokenC, env.user, 0))
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(data)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// createPool registers the env's pair.
func (env *testEnv) createPool(t *testing.T) *exchange.Exchange {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/v1/pools", CreatePoolRequest{
		Factory: env.factory.String(),
		TokenA:  env.tokenA.String(),
		TokenB:  env.tokenB.String(),
		TokenC:  env.tokenC.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pool := decode[exchange.Exchange](t, rec)

	return &pool
}

func (env *testEnv) addRequest(maxA, amountB, minC uint64) AddLiquidityRequest {
	return AddLiquidityRequest{
		Authority:     env.user.String(),
		FromA:         env.userA.String(),
		FromB:         env.userB.String(),
		ToC:           env.userC.String(),
		MaxAmountA:    maxA,
		AmountB:       amountB,
		MinLiquidityC: minC,
		Deadline:      time.Now().Add(time.Minute).Unix(),
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rec := env.do(t, http.MethodGet, "/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestNotFoundIsJSON(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rec := env.do(t, http.MethodGet, "/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAPIKey(t *testing.T) {
	env := newTestEnv(t, ServerConfig{APIKey: "secret"})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/health", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/metrics", nil).Code)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/v1/pools", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/v1/pools", nil, "X-API-Key", "wrong").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/pools", nil, "X-API-Key", "secret").Code)
}

func TestLiquidityNeedsAPIKey(t *testing.T) {
	env := newTestEnv(t, ServerConfig{APIKey: "secret"})
	rec := env.do(t, http.MethodPost, "/v1/pools", CreatePoolRequest{
		Factory: env.factory.String(),
		TokenA:  env.tokenA.String(),
		TokenB:  env.tokenB.String(),
		TokenC:  env.tokenC.String(),
	}, "X-API-Key", "secret")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pool := decode[exchange.Exchange](t, rec)
	base := "/v1/pools/" + pool.Address.String() + "/liquidity"

	// the authority field alone moves nothing without the key
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, base, env.addRequest(1000, 1000, 0)).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, base, env.addRequest(1000, 1000, 0), "X-API-Key", "wrong").Code)
	assert.Empty(t, env.ledger.Calls())

	rec = env.do(t, http.MethodPost, base, env.addRequest(1000, 1000, 0), "X-API-Key", "secret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(1000), env.ledger.Balance(env.userC))
}

func TestCreateAndListPools(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rec := env.do(t, http.MethodGet, "/v1/pools", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	pool := env.createPool(t)
	assert.Equal(t, exchange.DefaultFee, pool.Fee())
	assert.Zero(t, pool.TotalSupplyC)

	rec = env.do(t, http.MethodGet, "/v1/pools/"+pool.Address.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[exchange.Exchange](t, rec)
	assert.Equal(t, pool.Address, got.Address)

	path := fmt.Sprintf("/v1/pools?factory=%s&token_a=%s&token_b=%s", env.factory, env.tokenA, env.tokenB)
	rec = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items []exchange.Exchange `json:"items"`
	}](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, pool.Address, list.Items[0].Address)

	// same pair again
	rec = env.do(t, http.MethodPost, "/v1/pools", CreatePoolRequest{
		Factory: env.factory.String(),
		TokenA:  env.tokenA.String(),
		TokenB:  env.tokenB.String(),
		TokenC:  env.tokenC.String(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "pool_exists", decode[ErrorResponse](t, rec).Kind)
}

func TestCreatePoolValidation(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	tests := []struct {
		name string
		req  CreatePoolRequest
		code int
		kind string
	}{
		{"missing factory", CreatePoolRequest{TokenA: env.tokenA.String(), TokenB: env.tokenB.String(), TokenC: env.tokenC.String()}, http.StatusBadRequest, ""},
		{"bad key", CreatePoolRequest{Factory: "xyz0", TokenA: env.tokenA.String(), TokenB: env.tokenB.String(), TokenC: env.tokenC.String()}, http.StatusBadRequest, ""},
		{"same tokens", CreatePoolRequest{Factory: env.factory.String(), TokenA: env.tokenA.String(), TokenB: env.tokenA.String(), TokenC: env.tokenC.String()}, http.StatusBadRequest, "invalid_pool"},
		{"bad fee", CreatePoolRequest{Factory: env.factory.String(), TokenA: env.tokenA.String(), TokenB: env.tokenB.String(), TokenC: env.tokenC.String(), Fee: "2/1"}, http.StatusBadRequest, "invalid_fee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/pools", tt.req)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, tt.kind, decode[ErrorResponse](t, rec).Kind)
		})
	}
}

func TestGetPoolErrors(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	rec := env.do(t, http.MethodGet, "/v1/pools/"+newKey().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "pool_not_found", decode[ErrorResponse](t, rec).Kind)

	rec = env.do(t, http.MethodGet, "/v1/pools/not-a-key", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLiquidityLifecycle(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	pool := env.createPool(t)
	base := "/v1/pools/" + pool.Address.String()

	rec := env.do(t, http.MethodPost, base+"/liquidity", env.addRequest(1000, 1000, 0))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	added := decode[exchange.AddLiquidityResult](t, rec)
	assert.True(t, added.Seeded)
	assert.Equal(t, uint64(1000), added.LiquidityMinted)

	rec = env.do(t, http.MethodGet, base+"/reserves", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ReservesResponse{Pool: pool.Address.String(), ReserveA: 1000, ReserveB: 1000}, decode[ReservesResponse](t, rec))

	rec = env.do(t, http.MethodDelete, base+"/liquidity", RemoveLiquidityRequest{
		Authority:  env.user.String(),
		ToA:        env.userA.String(),
		ToB:        env.userB.String(),
		FromC:      env.userC.String(),
		AmountC:    400,
		MinAmountA: 1,
		MinAmountB: 1,
		Deadline:   time.Now().Add(time.Minute).Unix(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	removed := decode[exchange.RemoveLiquidityResult](t, rec)
	assert.Equal(t, uint64(400), removed.AmountA)
	assert.Equal(t, uint64(400), removed.AmountB)
	assert.Equal(t, uint64(600), removed.TotalSupplyC)

	assert.Equal(t, uint64(600), env.ledger.Balance(env.userC))
}

func TestAddLiquidityErrors(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	pool := env.createPool(t)
	base := "/v1/pools/" + pool.Address.String()

	expired := env.addRequest(1000, 1000, 0)
	expired.Deadline = time.Now().Add(-time.Hour).Unix()
	rec := env.do(t, http.MethodPost, base+"/liquidity", expired)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "expired_deadline", decode[ErrorResponse](t, rec).Kind)

	stranger := env.addRequest(1000, 1000, 0)
	stranger.Authority = newKey().String()
	rec = env.do(t, http.MethodPost, base+"/liquidity", stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unauthorized", decode[ErrorResponse](t, rec).Kind)

	missing := env.addRequest(1000, 1000, 0)
	missing.ToC = ""
	rec = env.do(t, http.MethodPost, base+"/liquidity", missing)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid to_c", decode[ErrorResponse](t, rec).Error)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/liquidity", env.addRequest(1000, 1000, 0)).Code)

	greedy := env.addRequest(100, 100, 101)
	rec = env.do(t, http.MethodPost, base+"/liquidity", greedy)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "slippage_exceeded", decode[ErrorResponse](t, rec).Kind)
}

func TestPoolQuote(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	pool := env.createPool(t)
	base := "/v1/pools/" + pool.Address.String()

	rec := env.do(t, http.MethodGet, base+"/quote/input?amount=100", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "empty_reserve", decode[ErrorResponse](t, rec).Kind)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/liquidity", env.addRequest(20000, 10000, 0)).Code)

	// live reserves, a_to_b: in=20000 out=10000
	rec = env.do(t, http.MethodGet, base+"/quote/input?amount=1000&slippageBps=100", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decode[QuoteResponse](t, rec)
	want, err := exchange.QuoteExactInput(1000, 20000, 10000, exchange.DefaultFee)
	require.NoError(t, err)
	assert.Equal(t, want, q.AmountOut)
	assert.Equal(t, exchange.ApplySlippage(want, 100), q.MinAmountOut)
	assert.Equal(t, pool.Address, q.Pool)

	rec = env.do(t, http.MethodGet, base+"/quote/output?amount=1000&direction=b_to_a", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q = decode[QuoteResponse](t, rec)
	want, err = exchange.QuoteExactOutput(1000, 10000, 20000, exchange.DefaultFee)
	require.NoError(t, err)
	assert.Equal(t, want, q.AmountIn)

	// explicit reserves override the live ones
	rec = env.do(t, http.MethodGet, base+"/quote/input?amount=1000&reserveIn=10000&reserveOut=10000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(901), decode[QuoteResponse](t, rec).AmountOut)

	p, err := env.manager.Pool(context.Background(), pool.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(901), p.InputPrice)

	rec = env.do(t, http.MethodGet, base+"/quote/sideways?amount=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, base+"/quote/input?amount=1&direction=up", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuote(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	tests := []struct {
		name  string
		query string
		code  int
		check func(t *testing.T, q QuoteResponse)
	}{
		{"exact input", "/v1/quote/input?amount=1000&reserveIn=10000&reserveOut=10000", http.StatusOK, func(t *testing.T, q QuoteResponse) {
			assert.Equal(t, uint64(901), q.AmountOut)
			assert.True(t, q.ExactInput)
		}},
		{"exact output", "/v1/quote/output?amount=901&reserveIn=10000&reserveOut=10000&slippageBps=50", http.StatusOK, func(t *testing.T, q QuoteResponse) {
			assert.Equal(t, uint64(1000), q.AmountIn)
			assert.Equal(t, uint64(1005), q.MaxAmountIn)
		}},
		{"custom fee", "/v1/quote/input?amount=1000&reserveIn=10000&reserveOut=10000&fee=0.003", http.StatusOK, func(t *testing.T, q QuoteResponse) {
			assert.Equal(t, uint64(906), q.AmountOut)
			assert.Equal(t, uint64(1000), q.FeeDenominator)
		}},
		{"missing reserve", "/v1/quote/input?amount=1000&reserveIn=10000", http.StatusBadRequest, nil},
		{"bad amount", "/v1/quote/input?amount=-1&reserveIn=1&reserveOut=1", http.StatusBadRequest, nil},
		{"bad slippage", "/v1/quote/input?amount=1&reserveIn=1&reserveOut=1&slippageBps=10001", http.StatusBadRequest, nil},
		{"drain", "/v1/quote/output?amount=10000&reserveIn=10000&reserveOut=10000", http.StatusUnprocessableEntity, nil},
		{"empty reserve", "/v1/quote/input?amount=1&reserveIn=0&reserveOut=10", http.StatusUnprocessableEntity, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.query, nil)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decode[QuoteResponse](t, rec))
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	env.createPool(t)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `amm_exchange_operations_total{op="create_pool",result="ok"} 1`)
}

func TestAsk(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{})
		rec := env.do(t, http.MethodPost, "/v1/analytics/ask", AskRequest{Question: "hi"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("answers", func(t *testing.T) {
		stub := &stubAnalyst{res: &analytics.AskResult{SQL: "SELECT 1 FROM liquidity_events", Answer: "one", Rows: 1}}
		env := newTestEnv(t, ServerConfig{}, func(h *Handlers) { h.Analytics = stub })

		rec := env.do(t, http.MethodPost, "/v1/analytics/ask", AskRequest{Question: "  how much?  "})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[AskResponse](t, rec)
		assert.Equal(t, "one", resp.Answer)
		assert.Equal(t, 1, resp.Rows)
		assert.Equal(t, "how much?", stub.got)
	})

	t.Run("rejected query", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{}, func(h *Handlers) {
			h.Analytics = &stubAnalyst{err: fmt.Errorf("%w: reads swaps", analytics.ErrRejectedQuery)}
		})
		rec := env.do(t, http.MethodPost, "/v1/analytics/ask", AskRequest{Question: "q"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("empty question", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{}, func(h *Handlers) { h.Analytics = &stubAnalyst{} })
		rec := env.do(t, http.MethodPost, "/v1/analytics/ask", AskRequest{Question: " "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("agent error", func(t *testing.T) {
		env := newTestEnv(t, ServerConfig{DevMode: true}, func(h *Handlers) {
			h.Analytics = &stubAnalyst{err: errors.New("clickhouse down")}
		})
		rec := env.do(t, http.MethodPost, "/v1/analytics/ask", AskRequest{Question: "q"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "clickhouse down")
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, StatusFor(fmt.Errorf("%w: transfer", exchange.ErrLedgerCallFailed)))
	assert.Equal(t, http.StatusNotFound, StatusFor(exchange.ErrPoolNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}
