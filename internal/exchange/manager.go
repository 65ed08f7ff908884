package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm/internal/lock"
	"github.com/aman-zulfiqar/solana-amm/internal/models"
)

// Observer is told about every finished Manager operation.
type Observer interface {
	Operation(op string, pool solana.PublicKey, err error, took time.Duration)
	Supply(pool solana.PublicKey, total uint64)
}

type ManagerConfig struct {
	// ProgramID seeds pool address derivation.
	ProgramID solana.PublicKey
	// Custodian owns every pool reserve account. Zero means each pool owns
	// its reserves under its own address.
	Custodian solana.PublicKey
	// Fee applied to pools created without one. Zero means DefaultFee.
	Fee Fee

	Store    Store
	Ledger   Ledger
	Locker   Locker
	Clock    Clock
	Events   EventSink
	Observer Observer
	Log      *logrus.Logger
}

// Manager runs pool operations: lookup, per-pool lock, guard, arithmetic,
// ledger calls, then the record write.
type Manager struct {
	programID solana.PublicKey
	custodian solana.PublicKey
	fee       Fee

	store    Store
	ledger   Ledger
	locker   Locker
	clock    Clock
	events   EventSink
	observer Observer
	log      *logrus.Logger
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is nil")
	}
	if cfg.Fee.IsZero() {
		cfg.Fee = DefaultFee
	}
	if err := cfg.Fee.Validate(); err != nil {
		return nil, err
	}
	if cfg.Locker == nil {
		cfg.Locker = lock.NewLocal()
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	return &Manager{
		programID: cfg.ProgramID,
		custodian: cfg.Custodian,
		fee:       cfg.Fee,
		store:     cfg.Store,
		ledger:    cfg.Ledger,
		locker:    cfg.Locker,
		clock:     cfg.Clock,
		events:    cfg.Events,
		observer:  cfg.Observer,
		log:       cfg.Log,
	}, nil
}

// DefaultFee returns the fee new pools get when none is given.
func (m *Manager) DefaultFee() Fee { return m.fee }

func (m *Manager) CreatePool(ctx context.Context, p CreatePoolParams) (pool *Exchange, err error) {
	start := time.Now()
	var addr solana.PublicKey
	defer func() { m.observe("create_pool", addr, err, start) }()

	if err := validateTokens(p); err != nil {
		return nil, err
	}
	fee := p.Fee
	if fee.IsZero() {
		fee = m.fee
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}

	addr, bump, err := DeriveAddress(m.programID, p.Factory, p.TokenA, p.TokenB)
	if err != nil {
		return nil, err
	}

	owner := m.reserveOwner(addr)
	if p.ReserveA.IsZero() {
		if p.ReserveA, err = DeriveReserve(owner, p.TokenA); err != nil {
			return nil, err
		}
	}
	if p.ReserveB.IsZero() {
		if p.ReserveB, err = DeriveReserve(owner, p.TokenB); err != nil {
			return nil, err
		}
	}
	if p.ReserveA.Equals(p.ReserveB) {
		return nil, fmt.Errorf("%w: reserves A and B are the same account", ErrInvalidPool)
	}

	unlock, err := m.locker.Lock(ctx, lockKey(addr))
	if err != nil {
		return nil, fmt.Errorf("lock pool %s: %w", addr, err)
	}
	defer unlock()

	if opener, ok := m.ledger.(Opener); ok {
		for _, r := range []struct{ addr, mint solana.PublicKey }{
			{p.ReserveA, p.TokenA},
			{p.ReserveB, p.TokenB},
		} {
			if err := opener.Open(ctx, r.addr, r.mint, owner); err != nil {
				return nil, fmt.Errorf("%w: open reserve %s: %w", ErrLedgerCallFailed, r.addr, err)
			}
		}
	}

	now := m.clock.Now().UTC()
	pool = &Exchange{
		Address:        addr,
		Bump:           bump,
		Factory:        p.Factory,
		TokenA:         p.TokenA,
		TokenB:         p.TokenB,
		TokenC:         p.TokenC,
		ReserveA:       p.ReserveA,
		ReserveB:       p.ReserveB,
		FeeNumerator:   fee.Numerator,
		FeeDenominator: fee.Denominator,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.store.Create(ctx, pool); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"pool":    addr.String(),
		"token_a": p.TokenA.String(),
		"token_b": p.TokenB.String(),
		"token_c": p.TokenC.String(),
		"fee":     fee.String(),
	}).Info("pool created")

	m.emit(ctx, &models.LiquidityEvent{
		Kind:   models.EventCreatePool,
		Pool:   addr.String(),
		TokenA: p.TokenA.String(),
		TokenB: p.TokenB.String(),
		TokenC: p.TokenC.String(),
	})
	return pool, nil
}

func validateTokens(p CreatePoolParams) error {
	if p.Factory.IsZero() {
		return fmt.Errorf("%w: factory is required", ErrInvalidPool)
	}
	ids := []solana.PublicKey{p.TokenA, p.TokenB, p.TokenC}
	for i, id := range ids {
		if id.IsZero() {
			return fmt.Errorf("%w: token %c is required", ErrInvalidPool, 'A'+i)
		}
		for _, other := range ids[:i] {
			if id.Equals(other) {
				return fmt.Errorf("%w: tokens must be distinct", ErrInvalidPool)
			}
		}
	}
	return nil
}

// Pool returns the record for id.
func (m *Manager) Pool(ctx context.Context, id solana.PublicKey) (*Exchange, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) Pools(ctx context.Context) ([]*Exchange, error) {
	return m.store.List(ctx)
}

// PoolByTokens finds the pool a factory created for the ordered pair (a, b).
func (m *Manager) PoolByTokens(ctx context.Context, factory, a, b solana.PublicKey) (*Exchange, error) {
	addr, _, err := DeriveAddress(m.programID, factory, a, b)
	if err != nil {
		return nil, err
	}
	return m.store.Get(ctx, addr)
}

// Reserves reads the pool's current reserve balances from the ledger.
func (m *Manager) Reserves(ctx context.Context, id solana.PublicKey) (reserveA, reserveB uint64, err error) {
	pool, err := m.store.Get(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	a, err := m.account(ctx, pool.ReserveA)
	if err != nil {
		return 0, 0, err
	}
	b, err := m.account(ctx, pool.ReserveB)
	if err != nil {
		return 0, 0, err
	}
	return a.Amount, b.Amount, nil
}

func (m *Manager) AddLiquidity(ctx context.Context, p AddLiquidityParams) (res *AddLiquidityResult, err error) {
	start := time.Now()
	defer func() { m.observe("add_liquidity", p.Pool, err, start) }()

	if err := CheckDeadline(p.Deadline, m.clock.Now().Unix()); err != nil {
		return nil, err
	}
	if err := CheckPositive(amount("max_amount_a", p.MaxAmountA), amount("amount_b", p.AmountB)); err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, lockKey(p.Pool))
	if err != nil {
		return nil, fmt.Errorf("lock pool %s: %w", p.Pool, err)
	}
	defer unlock()

	pool, err := m.store.Get(ctx, p.Pool)
	if err != nil {
		return nil, err
	}
	if err := CheckMint(pool, p.Mint); err != nil {
		return nil, err
	}
	if err := CheckReserves(pool, p.ToA, p.ToB); err != nil {
		return nil, err
	}

	accts, err := m.accounts(ctx, p.FromA, p.FromB, p.ToA, p.ToB, p.ToC)
	if err != nil {
		return nil, err
	}
	fromA, fromB, toA, toB, toC := accts[0], accts[1], accts[2], accts[3], accts[4]

	if err := CheckAuthority(p.Authority, fromA, fromB); err != nil {
		return nil, err
	}
	if err := CheckAssets(
		Leg{"from_a", fromA, pool.TokenA},
		Leg{"from_b", fromB, pool.TokenB},
		Leg{"to_a", toA, pool.TokenA},
		Leg{"to_b", toB, pool.TokenB},
		Leg{"to_c", toC, pool.TokenC},
	); err != nil {
		return nil, err
	}

	res = &AddLiquidityResult{Pool: pool.Address, AmountB: p.AmountB}
	if pool.Empty() {
		res.Seeded = true
		res.AmountA = p.MaxAmountA
		res.LiquidityMinted = p.AmountB
	} else {
		if p.MinLiquidityC == 0 {
			return nil, fmt.Errorf("%w: min_liquidity_c must be > 0", ErrInvalidAmount)
		}
		reserveA, reserveB := toA.Amount, toB.Amount
		if reserveB == 0 {
			return nil, fmt.Errorf("%w: reserve B of a pool with outstanding shares", ErrEmptyReserve)
		}
		if res.AmountA, err = mulDiv(p.AmountB, reserveA, reserveB, false); err != nil {
			return nil, err
		}
		if res.LiquidityMinted, err = mulDiv(p.AmountB, pool.TotalSupplyC, reserveB, false); err != nil {
			return nil, err
		}
		if res.AmountA > p.MaxAmountA {
			return nil, fmt.Errorf("%w: need %d of A, max %d", ErrSlippageExceeded, res.AmountA, p.MaxAmountA)
		}
		if res.LiquidityMinted < p.MinLiquidityC {
			return nil, fmt.Errorf("%w: would mint %d, min %d", ErrSlippageExceeded, res.LiquidityMinted, p.MinLiquidityC)
		}
	}

	supply := pool.TotalSupplyC + res.LiquidityMinted
	if supply < pool.TotalSupplyC {
		return nil, fmt.Errorf("%w: total supply", ErrArithmeticOverflow)
	}

	custodian := m.reserveOwner(pool.Address)
	tx := m.begin()
	if err := tx.do(ctx, "transfer A",
		func(ctx context.Context) error {
			return m.ledger.Transfer(ctx, p.FromA, p.ToA, p.Authority, res.AmountA)
		},
		func(ctx context.Context) error {
			return m.ledger.Transfer(ctx, p.ToA, p.FromA, custodian, res.AmountA)
		},
	); err != nil {
		return nil, err
	}
	if err := tx.do(ctx, "transfer B",
		func(ctx context.Context) error {
			return m.ledger.Transfer(ctx, p.FromB, p.ToB, p.Authority, res.AmountB)
		},
		func(ctx context.Context) error {
			return m.ledger.Transfer(ctx, p.ToB, p.FromB, custodian, res.AmountB)
		},
	); err != nil {
		return nil, err
	}
	if err := tx.do(ctx, "mint C",
		func(ctx context.Context) error {
			return m.ledger.MintTo(ctx, pool.TokenC, p.ToC, res.LiquidityMinted)
		},
		func(ctx context.Context) error {
			return m.ledger.Burn(ctx, pool.TokenC, p.ToC, toC.Owner, res.LiquidityMinted)
		},
	); err != nil {
		return nil, err
	}

	pool.TotalSupplyC = supply
	pool.UpdatedAt = m.clock.Now().UTC()
	if err := m.store.Update(ctx, pool); err != nil {
		return nil, tx.abort(ctx, fmt.Errorf("update pool %s: %w", pool.Address, err))
	}
	res.TotalSupplyC = supply

	m.log.WithFields(logrus.Fields{
		"pool":      pool.Address.String(),
		"authority": p.Authority.String(),
		"amount_a":  res.AmountA,
		"amount_b":  res.AmountB,
		"minted":    res.LiquidityMinted,
		"supply":    supply,
		"seeded":    res.Seeded,
	}).Info("liquidity added")

	m.emit(ctx, &models.LiquidityEvent{
		Kind:         models.EventAddLiquidity,
		Pool:         pool.Address.String(),
		Authority:    p.Authority.String(),
		TokenA:       pool.TokenA.String(),
		TokenB:       pool.TokenB.String(),
		TokenC:       pool.TokenC.String(),
		AmountA:      res.AmountA,
		AmountB:      res.AmountB,
		AmountC:      res.LiquidityMinted,
		TotalSupplyC: supply,
	})
	if m.observer != nil {
		m.observer.Supply(pool.Address, supply)
	}
	return res, nil
}

func (m *Manager) RemoveLiquidity(ctx context.Context, p RemoveLiquidityParams) (res *RemoveLiquidityResult, err error) {
	start := time.Now()
	defer func() { m.observe("remove_liquidity", p.Pool, err, start) }()

	if err := CheckDeadline(p.Deadline, m.clock.Now().Unix()); err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, lockKey(p.Pool))
	if err != nil {
		return nil, fmt.Errorf("lock pool %s: %w", p.Pool, err)
	}
	defer unlock()

	pool, err := m.store.Get(ctx, p.Pool)
	if err != nil {
		return nil, err
	}
	if err := CheckMint(pool, p.Mint); err != nil {
		return nil, err
	}
	if err := CheckReserves(pool, p.FromA, p.FromB); err != nil {
		return nil, err
	}
	if pool.Empty() {
		return nil, ErrEmptyPool
	}
	if err := CheckPositive(
		amount("amount_c", p.AmountC),
		amount("min_amount_a", p.MinAmountA),
		amount("min_amount_b", p.MinAmountB),
	); err != nil {
		return nil, err
	}
	if p.AmountC > pool.TotalSupplyC {
		return nil, fmt.Errorf("%w: burning %d of %d shares", ErrArithmeticOverflow, p.AmountC, pool.TotalSupplyC)
	}

	accts, err := m.accounts(ctx, p.FromA, p.FromB, p.ToA, p.ToB, p.FromC)
	if err != nil {
		return nil, err
	}
	fromA, fromB, toA, toB, fromC := accts[0], accts[1], accts[2], accts[3], accts[4]

	if err := CheckAuthority(p.Authority, fromC); err != nil {
		return nil, err
	}
	if err := CheckAssets(
		Leg{"from_a", fromA, pool.TokenA},
		Leg{"from_b", fromB, pool.TokenB},
		Leg{"to_a", toA, pool.TokenA},
		Leg{"to_b", toB, pool.TokenB},
		Leg{"from_c", fromC, pool.TokenC},
	); err != nil {
		return nil, err
	}

	res = &RemoveLiquidityResult{Pool: pool.Address, LiquidityBurned: p.AmountC}
	if res.AmountA, err = mulDiv(p.AmountC, fromA.Amount, pool.TotalSupplyC, false); err != nil {
		return nil, err
	}
	if res.AmountB, err = mulDiv(p.AmountC, fromB.Amount, pool.TotalSupplyC, false); err != nil {
		return nil, err
	}
	if res.AmountA < p.MinAmountA {
		return nil, fmt.Errorf("%w: would receive %d of A, min %d", ErrSlippageExceeded, res.AmountA, p.MinAmountA)
	}
	if res.AmountB < p.MinAmountB {
		return nil, fmt.Errorf("%w: would receive %d of B, min %d", ErrSlippageExceeded, res.AmountB, p.MinAmountB)
	}
	supply := pool.TotalSupplyC - p.AmountC

	custodian := m.reserveOwner(pool.Address)
	tx := m.begin()
	if err := tx.do(ctx, "burn C",
		func(ctx context.Context) error {
			return m.ledger.Burn(ctx, pool.TokenC, p.FromC, p.Authority, p.AmountC)
		},
		func(ctx context.Context) error {
			return m.ledger.MintTo(ctx, pool.TokenC, p.FromC, p.AmountC)
		},
	); err != nil {
		return nil, err
	}
	if err := tx.do(ctx, "transfer A",
		func(ctx context.Context) error {
			return m.ledger.Transfer(ctx, p.FromA, p.ToA, custodian, res.AmountA)
		},
		func(ctx context.Context) error {
			return m.ledger.Transfer(ctx, p.ToA, p.FromA, toA.Owner, res.AmountA)
		},
	); err != nil {
		return nil, err
	}
	if err := tx.do(ctx, "transfer B",
		func(ctx context.Context) error {
			return m.ledger.Transfer(ctx, p.FromB, p.ToB, custodian, res.AmountB)
		},
		func(ctx context.Context) error {
			return m.ledger.Transfer(ctx, p.ToB, p.FromB, toB.Owner, res.AmountB)
		},
	); err != nil {
		return nil, err
	}

	pool.TotalSupplyC = supply
	pool.UpdatedAt = m.clock.Now().UTC()
	if err := m.store.Update(ctx, pool); err != nil {
		return nil, tx.abort(ctx, fmt.Errorf("update pool %s: %w", pool.Address, err))
	}
	res.TotalSupplyC = supply

	m.log.WithFields(logrus.Fields{
		"pool":      pool.Address.String(),
		"authority": p.Authority.String(),
		"amount_a":  res.AmountA,
		"amount_b":  res.AmountB,
		"burned":    p.AmountC,
		"supply":    supply,
	}).Info("liquidity removed")

	m.emit(ctx, &models.LiquidityEvent{
		Kind:         models.EventRemoveLiquidity,
		Pool:         pool.Address.String(),
		Authority:    p.Authority.String(),
		TokenA:       pool.TokenA.String(),
		TokenB:       pool.TokenB.String(),
		TokenC:       pool.TokenC.String(),
		AmountA:      res.AmountA,
		AmountB:      res.AmountB,
		AmountC:      p.AmountC,
		TotalSupplyC: supply,
	})
	if m.observer != nil {
		m.observer.Supply(pool.Address, supply)
	}
	return res, nil
}

// QuoteExactInput prices an exact-input exchange with the pool's fee and
// caches the result as the pool's input price.
func (m *Manager) QuoteExactInput(ctx context.Context, id solana.PublicKey, amountIn, reserveIn, reserveOut uint64) (*Quote, error) {
	return m.quote(ctx, id, true, amountIn, reserveIn, reserveOut)
}

// QuoteExactOutput prices an exact-output exchange and caches the result as
// the pool's output price.
func (m *Manager) QuoteExactOutput(ctx context.Context, id solana.PublicKey, amountOut, reserveIn, reserveOut uint64) (*Quote, error) {
	return m.quote(ctx, id, false, amountOut, reserveIn, reserveOut)
}

func (m *Manager) quote(ctx context.Context, id solana.PublicKey, exactIn bool, amt, reserveIn, reserveOut uint64) (q *Quote, err error) {
	start := time.Now()
	op := "quote_exact_output"
	if exactIn {
		op = "quote_exact_input"
	}
	defer func() { m.observe(op, id, err, start) }()

	unlock, err := m.locker.Lock(ctx, lockKey(id))
	if err != nil {
		return nil, fmt.Errorf("lock pool %s: %w", id, err)
	}
	defer unlock()

	pool, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	q, err = Price(exactIn, amt, reserveIn, reserveOut, pool.Fee())
	if err != nil {
		return nil, err
	}
	q.Pool = pool.Address

	if exactIn {
		pool.InputPrice = q.AmountOut
	} else {
		pool.OutputPrice = q.AmountIn
	}
	pool.UpdatedAt = m.clock.Now().UTC()
	if err := m.store.Update(ctx, pool); err != nil {
		return nil, fmt.Errorf("cache quote on %s: %w", pool.Address, err)
	}
	return q, nil
}

// Price quotes against bare reserves.
func Price(exactIn bool, amt, reserveIn, reserveOut uint64, fee Fee) (*Quote, error) {
	q := &Quote{
		ExactInput:     exactIn,
		ReserveIn:      reserveIn,
		ReserveOut:     reserveOut,
		FeeNumerator:   fee.Numerator,
		FeeDenominator: fee.Denominator,
	}
	var err error
	if exactIn {
		q.AmountIn = amt
		q.AmountOut, err = QuoteExactInput(amt, reserveIn, reserveOut, fee)
	} else {
		q.AmountOut = amt
		q.AmountIn, err = QuoteExactOutput(amt, reserveIn, reserveOut, fee)
	}
	if err != nil {
		return nil, err
	}
	q.PriceImpactBps = PriceImpactBps(q.AmountIn, q.AmountOut, reserveIn, reserveOut)
	return q, nil
}

func (m *Manager) reserveOwner(pool solana.PublicKey) solana.PublicKey {
	if m.custodian.IsZero() {
		return pool
	}
	return m.custodian
}

func (m *Manager) account(ctx context.Context, addr solana.PublicKey) (TokenAccount, error) {
	a, err := m.ledger.Account(ctx, addr)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("%w: read account %s: %w", ErrLedgerCallFailed, addr, err)
	}
	return a, nil
}

func (m *Manager) accounts(ctx context.Context, addrs ...solana.PublicKey) ([]TokenAccount, error) {
	out := make([]TokenAccount, len(addrs))
	for i, addr := range addrs {
		a, err := m.account(ctx, addr)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func (m *Manager) emit(ctx context.Context, ev *models.LiquidityEvent) {
	if m.events == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.Timestamp = m.clock.Now().UTC()
	if err := m.events.Emit(ctx, ev); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"pool": ev.Pool,
			"kind": ev.Kind,
		}).Warn("failed to emit liquidity event")
	}
}

func (m *Manager) observe(op string, pool solana.PublicKey, err error, start time.Time) {
	if err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"op":   op,
			"pool": pool.String(),
			"kind": Kind(err),
		}).Warn("operation failed")
	}
	if m.observer != nil {
		m.observer.Operation(op, pool, err, time.Since(start))
	}
}

func lockKey(pool solana.PublicKey) string {
	return "pool:" + pool.String()
}

// ledgerTx records applied ledger calls so they can be undone in reverse.
type ledgerTx struct {
	log  *logrus.Logger
	done []applied
}

type applied struct {
	name string
	undo func(context.Context) error
}

func (m *Manager) begin() *ledgerTx {
	return &ledgerTx{log: m.log}
}

// do runs call; on failure it compensates everything applied so far.
func (tx *ledgerTx) do(ctx context.Context, name string, call, undo func(context.Context) error) error {
	if err := call(ctx); err != nil {
		return tx.abort(ctx, fmt.Errorf("%w: %s: %w", ErrLedgerCallFailed, name, err))
	}
	tx.done = append(tx.done, applied{name: name, undo: undo})
	return nil
}

// abort undoes applied calls in reverse and returns cause joined with any
// compensation failures.
func (tx *ledgerTx) abort(ctx context.Context, cause error) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for i := len(tx.done) - 1; i >= 0; i-- {
		step := tx.done[i]
		if err := step.undo(ctx); err != nil {
			tx.log.WithError(err).WithField("step", step.name).Error("compensation failed")
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.name, err))
		}
	}
	tx.done = nil
	return errors.Join(errs...)
}
