package exchange

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var poolSeed = []byte("exchange")

// DeriveAddress returns the program-derived pool address for a factory and
// token pair. The pair is ordered as given: (A, B) and (B, A) are distinct pools.
func DeriveAddress(programID, factory, tokenA, tokenB solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{poolSeed, factory.Bytes(), tokenA.Bytes(), tokenB.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive pool address: %w", err)
	}
	return addr, bump, nil
}

// DeriveReserve returns the pool's associated token account for mint.
func DeriveReserve(pool, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(pool, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive reserve for %s: %w", mint, err)
	}
	return addr, nil
}
