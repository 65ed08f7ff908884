package events

import (
	"context"
	"errors"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
	"github.com/aman-zulfiqar/solana-amm/internal/models"
)

// Fanout delivers every event to all sinks, even when some fail.
type Fanout []exchange.EventSink

func (f Fanout) Emit(ctx context.Context, ev *models.LiquidityEvent) error {
	var errs []error
	for _, s := range f {
		if err := s.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
