package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

var (
	ErrAccountNotFound   = errors.New("token account not found")
	ErrAccountExists     = errors.New("token account already exists")
	ErrMintMismatch      = errors.New("accounts hold different mints")
	ErrOwnerMismatch     = errors.New("authority does not own account")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSupplyOverflow    = errors.New("balance overflow")
)

// Call is one mutating call a Memory ledger accepted or rejected.
type Call struct {
	Op        string
	Mint      solana.PublicKey
	From      solana.PublicKey
	To        solana.PublicKey
	Authority solana.PublicKey
	Amount    uint64
	Err       error
}

// Memory is an in-process token ledger with SPL-token semantics. Failures can
// be injected per operation for tests and dry runs.
type Memory struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*exchange.TokenAccount
	supply   map[solana.PublicKey]uint64
	fail     map[string][]error
	calls    []Call
	reads    int
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[solana.PublicKey]*exchange.TokenAccount),
		supply:   make(map[solana.PublicKey]uint64),
		fail:     make(map[string][]error),
	}
}

// CreateAccount opens a token account holding amount of mint.
func (m *Memory) CreateAccount(address, mint, owner solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[address]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, address)
	}
	m.accounts[address] = &exchange.TokenAccount{
		Address: address,
		Mint:    mint,
		Owner:   owner,
		Amount:  amount,
	}
	m.supply[mint] += amount
	return nil
}

// Open opens an empty account, or accepts one already holding mint under owner.
func (m *Memory) Open(_ context.Context, address, mint, owner solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("open"); err != nil {
		return err
	}
	if a, ok := m.accounts[address]; ok {
		if a.Mint.Equals(mint) && a.Owner.Equals(owner) {
			return nil
		}
		return fmt.Errorf("%w: %s holds %s for %s", ErrAccountExists, address, a.Mint, a.Owner)
	}
	m.accounts[address] = &exchange.TokenAccount{Address: address, Mint: mint, Owner: owner}
	return nil
}

// FailNext makes the next call of op ("transfer", "mint_to", "burn",
// "account", "open") return err. Queued failures are consumed in order.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = append(m.fail[op], err)
}

// Calls returns the mutating calls seen so far.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Supply is the outstanding amount of mint across all accounts.
func (m *Memory) Supply(mint solana.PublicKey) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.supply[mint]
}

func (m *Memory) Balance(address solana.PublicKey) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[address]; ok {
		return a.Amount
	}
	return 0
}

func (m *Memory) Account(_ context.Context, address solana.PublicKey) (exchange.TokenAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if err := m.injected("account"); err != nil {
		return exchange.TokenAccount{}, err
	}
	a, ok := m.accounts[address]
	if !ok {
		return exchange.TokenAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	return *a, nil
}

func (m *Memory) Transfer(_ context.Context, from, to, authority solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.transfer(from, to, authority, amount)
	m.record(Call{Op: "transfer", From: from, To: to, Authority: authority, Amount: amount, Err: err})
	return err
}

func (m *Memory) transfer(from, to, authority solana.PublicKey, amount uint64) error {
	if err := m.injected("transfer"); err != nil {
		return err
	}
	src, err := m.lookup(from)
	if err != nil {
		return err
	}
	dst, err := m.lookup(to)
	if err != nil {
		return err
	}
	if !src.Mint.Equals(dst.Mint) {
		return fmt.Errorf("%w: %s and %s", ErrMintMismatch, src.Mint, dst.Mint)
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, from)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from, src.Amount, amount)
	}
	if dst.Amount+amount < dst.Amount {
		return fmt.Errorf("%w: %s", ErrSupplyOverflow, to)
	}
	src.Amount -= amount
	dst.Amount += amount
	return nil
}

func (m *Memory) MintTo(_ context.Context, mint, to solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.mintTo(mint, to, amount)
	m.record(Call{Op: "mint_to", Mint: mint, To: to, Amount: amount, Err: err})
	return err
}

func (m *Memory) mintTo(mint, to solana.PublicKey, amount uint64) error {
	if err := m.injected("mint_to"); err != nil {
		return err
	}
	dst, err := m.lookup(to)
	if err != nil {
		return err
	}
	if !dst.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, to, dst.Mint)
	}
	if m.supply[mint]+amount < m.supply[mint] {
		return fmt.Errorf("%w: mint %s", ErrSupplyOverflow, mint)
	}
	dst.Amount += amount
	m.supply[mint] += amount
	return nil
}

func (m *Memory) Burn(_ context.Context, mint, from, authority solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.burn(mint, from, authority, amount)
	m.record(Call{Op: "burn", Mint: mint, From: from, Authority: authority, Amount: amount, Err: err})
	return err
}

func (m *Memory) burn(mint, from, authority solana.PublicKey, amount uint64) error {
	if err := m.injected("burn"); err != nil {
		return err
	}
	src, err := m.lookup(from)
	if err != nil {
		return err
	}
	if !src.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, from, src.Mint)
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, from)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s has %d, burning %d", ErrInsufficientFunds, from, src.Amount, amount)
	}
	src.Amount -= amount
	m.supply[mint] -= amount
	return nil
}

func (m *Memory) lookup(address solana.PublicKey) (*exchange.TokenAccount, error) {
	a, ok := m.accounts[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	return a, nil
}

func (m *Memory) injected(op string) error {
	q := m.fail[op]
	if len(q) == 0 {
		return nil
	}
	m.fail[op] = q[1:]
	return q[0]
}

func (m *Memory) record(c Call) {
	m.calls = append(m.calls, c)
}
