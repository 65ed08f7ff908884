package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

// PoolConfig represents a pool entry in the JSON bootstrap file
type PoolConfig struct {
	Name           string `json:"name"`
	Factory        string `json:"factory"`
	TokenA         string `json:"token_a"`
	TokenB         string `json:"token_b"`
	TokenC         string `json:"token_c"`
	ReserveA       string `json:"reserve_a,omitempty"`
	ReserveB       string `json:"reserve_b,omitempty"`
	FeeNumerator   uint64 `json:"fee_numerator,omitempty"`
	FeeDenominator uint64 `json:"fee_denominator,omitempty"`
}

// Creator is what Bootstrap needs from the liquidity manager.
type Creator interface {
	CreatePool(ctx context.Context, p exchange.CreatePoolParams) (*exchange.Exchange, error)
}

// LoadPoolsFromJSON reads and parses pool configurations
func LoadPoolsFromJSON(path string) ([]exchange.CreatePoolParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var configs []PoolConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	out := make([]exchange.CreatePoolParams, 0, len(configs))
	for i, cfg := range configs {
		p, err := parsePoolConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("pool %d (%s): %w", i, cfg.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// parsePoolConfig converts a config entry to creation params with validation
func parsePoolConfig(cfg PoolConfig) (exchange.CreatePoolParams, error) {
	var p exchange.CreatePoolParams
	required := []struct {
		name string
		val  string
		dst  *solana.PublicKey
	}{
		{"factory", cfg.Factory, &p.Factory},
		{"token_a", cfg.TokenA, &p.TokenA},
		{"token_b", cfg.TokenB, &p.TokenB},
		{"token_c", cfg.TokenC, &p.TokenC},
	}
	for _, f := range required {
		pk, err := solana.PublicKeyFromBase58(f.val)
		if err != nil {
			return p, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = pk
	}

	optional := []struct {
		name string
		val  string
		dst  *solana.PublicKey
	}{
		{"reserve_a", cfg.ReserveA, &p.ReserveA},
		{"reserve_b", cfg.ReserveB, &p.ReserveB},
	}
	for _, f := range optional {
		if f.val == "" {
			continue
		}
		pk, err := solana.PublicKeyFromBase58(f.val)
		if err != nil {
			return p, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = pk
	}

	if cfg.FeeNumerator != 0 || cfg.FeeDenominator != 0 {
		p.Fee = exchange.Fee{Numerator: cfg.FeeNumerator, Denominator: cfg.FeeDenominator}
		if err := p.Fee.Validate(); err != nil {
			return p, err
		}
	}
	return p, nil
}

// Bootstrap creates every pool listed in path. Pools that already exist are
// left as they are. It returns how many were created.
func Bootstrap(ctx context.Context, c Creator, path string, log *logrus.Logger) (int, error) {
	if log == nil {
		log = logrus.New()
	}
	params, err := LoadPoolsFromJSON(path)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, p := range params {
		pool, err := c.CreatePool(ctx, p)
		if errors.Is(err, exchange.ErrPoolExists) {
			log.WithFields(logrus.Fields{
				"token_a": p.TokenA.String(),
				"token_b": p.TokenB.String(),
			}).Debug("pool already registered")
			continue
		}
		if err != nil {
			return created, fmt.Errorf("bootstrap pool %s/%s: %w", p.TokenA, p.TokenB, err)
		}
		created++
		log.WithField("pool", pool.Address.String()).Info("bootstrapped pool")
	}
	return created, nil
}
