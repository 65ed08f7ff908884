package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
	"github.com/aman-zulfiqar/solana-amm/internal/wallet"
)

var ErrNoSigner = errors.New("wallet holds no key for authority")

// Solana drives the SPL Token program through RPC. The wallet's payer key is
// the mint authority of every share mint; transfer and burn authorities must
// be keys the wallet holds.
type Solana struct {
	w   *wallet.Wallet
	log *logrus.Logger
}

func NewSolana(w *wallet.Wallet, log *logrus.Logger) (*Solana, error) {
	if w == nil {
		return nil, fmt.Errorf("wallet is nil")
	}
	if log == nil {
		log = logrus.New()
	}
	return &Solana{w: w, log: log}, nil
}

func (s *Solana) Account(ctx context.Context, address solana.PublicKey) (exchange.TokenAccount, error) {
	data, err := s.w.AccountData(ctx, address)
	if err != nil {
		return exchange.TokenAccount{}, err
	}
	if data == nil {
		return exchange.TokenAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	return ParseTokenAccount(address, data)
}

func (s *Solana) Transfer(ctx context.Context, from, to, authority solana.PublicKey, amount uint64) error {
	if !s.w.CanSign(authority) {
		return fmt.Errorf("%w: %s", ErrNoSigner, authority)
	}
	return s.exec(ctx, "transfer", amount, TransferInstruction(from, to, authority, amount))
}

func (s *Solana) MintTo(ctx context.Context, mint, to solana.PublicKey, amount uint64) error {
	return s.exec(ctx, "mint_to", amount, MintToInstruction(mint, to, s.w.PublicKey(), amount))
}

func (s *Solana) Burn(ctx context.Context, mint, from, authority solana.PublicKey, amount uint64) error {
	if !s.w.CanSign(authority) {
		return fmt.Errorf("%w: %s", ErrNoSigner, authority)
	}
	return s.exec(ctx, "burn", amount, BurnInstruction(from, mint, authority, amount))
}

func (s *Solana) exec(ctx context.Context, op string, amount uint64, ix solana.Instruction) error {
	sig, err := s.w.Execute(ctx, ix)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"op":        op,
			"amount":    amount,
			"signature": sig,
		}).Error("token instruction failed")
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.WithFields(logrus.Fields{
		"op":        op,
		"amount":    amount,
		"signature": sig,
	}).Info("token instruction confirmed")
	return nil
}
