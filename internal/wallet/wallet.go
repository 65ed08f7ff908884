package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	projectrpc "github.com/aman-zulfiqar/solana-amm/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

type WalletConfig struct {
	RPCURL       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	PrivateKey string   // fee payer; base58-encoded 64-byte key OR solana-keygen JSON array
	Signers    []string // extra transfer and burn authorities, same formats

	DefaultCommitment   string // e.g. "confirmed"
	SkipPreflight       bool
	PreflightCommitment string // e.g. "processed"
	ConfirmTimeout      time.Duration

	Logger *logrus.Logger
}

// Wallet pays for and signs ledger transactions. Besides the payer it holds
// any extra keys a transaction may need as signer.
type Wallet struct {
	cfg  WalletConfig
	rpc  *projectrpc.Client
	priv solana.PrivateKey
	pub  solana.PublicKey

	mu   sync.RWMutex
	keys map[solana.PublicKey]solana.PrivateKey
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("wallet: RPCURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 1 * time.Second
	}
	if cfg.DefaultCommitment == "" {
		cfg.DefaultCommitment = "confirmed"
	}
	if cfg.PreflightCommitment == "" {
		cfg.PreflightCommitment = "processed"
	}
	if cfg.ConfirmTimeout == 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("wallet: PrivateKey is required")
	}

	priv, err := ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	rpcClient := projectrpc.NewClient(projectrpc.ClientConfig{
		BaseURL:      cfg.RPCURL,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       cfg.Logger,
	})

	pub := priv.PublicKey()

	w := &Wallet{
		cfg:  cfg,
		rpc:  rpcClient,
		priv: priv,
		pub:  pub,
		keys: map[solana.PublicKey]solana.PrivateKey{pub: priv},
	}
	for i, s := range cfg.Signers {
		k, err := ParsePrivateKey(s)
		if err != nil {
			return nil, fmt.Errorf("wallet: signer %d: %w", i, err)
		}
		signer := w.AddSigner(k)
		if cfg.Logger != nil {
			cfg.Logger.WithField("signer", signer.String()).Debug("registered signer")
		}
	}
	return w, nil
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }
func (w *Wallet) Close() error                { return nil }

// AddSigner registers an extra key and returns its public key.
func (w *Wallet) AddSigner(priv solana.PrivateKey) solana.PublicKey {
	pub := priv.PublicKey()
	w.mu.Lock()
	w.keys[pub] = priv
	w.mu.Unlock()
	return pub
}

// CanSign reports whether the wallet holds the key for pub.
func (w *Wallet) CanSign(pub solana.PublicKey) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.keys[pub]
	return ok
}

// AccountData returns the raw data of an on-chain account, or nil when the
// account does not exist.
func (w *Wallet) AccountData(ctx context.Context, pubkey solana.PublicKey) ([]byte, error) {
	info, err := w.rpc.GetAccountInfo(ctx, pubkey.String(), w.cfg.DefaultCommitment)
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo %s: %w", pubkey, err)
	}
	if info == nil {
		return nil, nil
	}
	return info.Bytes()
}

// ParsePrivateKey reads a base58 key or a solana-keygen JSON byte array.
func ParsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("wallet: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(ed25519.PrivateKey(b)), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(ed25519.PrivateKey(raw)), nil
}
