package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

// AccountConfig represents a token account entry in the JSON bootstrap file
type AccountConfig struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
}

// LoadAccountsFromJSON reads and parses token account entries
func LoadAccountsFromJSON(path string) ([]exchange.TokenAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	var configs []AccountConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	out := make([]exchange.TokenAccount, 0, len(configs))
	for i, cfg := range configs {
		a := exchange.TokenAccount{Amount: cfg.Amount}
		for _, f := range []struct {
			name string
			val  string
			dst  *solana.PublicKey
		}{
			{"address", cfg.Address, &a.Address},
			{"mint", cfg.Mint, &a.Mint},
			{"owner", cfg.Owner, &a.Owner},
		} {
			pk, err := solana.PublicKeyFromBase58(f.val)
			if err != nil {
				return nil, fmt.Errorf("account %d (%s): %s: %w", i, cfg.Name, f.name, err)
			}
			*f.dst = pk
		}
		out = append(out, a)
	}
	return out, nil
}

// Bootstrap opens every account listed in path with its starting balance.
// Accounts that already exist are left as they are. It returns how many
// were opened.
func (m *Memory) Bootstrap(path string, log *logrus.Logger) (int, error) {
	if log == nil {
		log = logrus.New()
	}
	accounts, err := LoadAccountsFromJSON(path)
	if err != nil {
		return 0, err
	}

	opened := 0
	for _, a := range accounts {
		err := m.CreateAccount(a.Address, a.Mint, a.Owner, a.Amount)
		if errors.Is(err, ErrAccountExists) {
			log.WithField("account", a.Address.String()).Debug("account already open")
			continue
		}
		if err != nil {
			return opened, fmt.Errorf("bootstrap account %s: %w", a.Address, err)
		}
		opened++
		log.WithFields(logrus.Fields{
			"account": a.Address.String(),
			"mint":    a.Mint.String(),
			"owner":   a.Owner.String(),
			"amount":  a.Amount,
		}).Info("bootstrapped token account")
	}
	return opened, nil
}
