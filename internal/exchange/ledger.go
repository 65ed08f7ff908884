package exchange

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-amm/internal/models"
)

// Ledger is the token service the exchange drives. Each call is atomic on its
// own; the Manager sequences and compensates them.
type Ledger interface {
	// Account reads a token account fresh from the ledger.
	Account(ctx context.Context, address solana.PublicKey) (TokenAccount, error)
	// Transfer moves amount from one token account to another, authorized by authority.
	Transfer(ctx context.Context, from, to, authority solana.PublicKey, amount uint64) error
	// MintTo issues amount of mint into the to account.
	MintTo(ctx context.Context, mint, to solana.PublicKey, amount uint64) error
	// Burn destroys amount of mint held in the from account, authorized by authority.
	Burn(ctx context.Context, mint, from, authority solana.PublicKey, amount uint64) error
}

// Opener is implemented by ledgers that can open empty token accounts.
// CreatePool uses it to open the pool reserves. Opening an account that
// already holds the same mint under the same owner is not an error.
type Opener interface {
	Open(ctx context.Context, address, mint, owner solana.PublicKey) error
}

// Store is the pool registry.
type Store interface {
	Create(ctx context.Context, pool *Exchange) error
	Get(ctx context.Context, address solana.PublicKey) (*Exchange, error)
	Update(ctx context.Context, pool *Exchange) error
	List(ctx context.Context) ([]*Exchange, error)
}

// Locker serializes operations on one pool.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// EventSink receives liquidity events after a successful operation.
type EventSink interface {
	Emit(ctx context.Context, ev *models.LiquidityEvent) error
}

// Clock supplies the current time for deadline checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
