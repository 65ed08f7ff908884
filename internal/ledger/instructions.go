package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

// SPL Token instruction discriminators.
const (
	tokenIxTransfer = 3
	tokenIxMintTo   = 7
	tokenIxBurn     = 8
)

// tokenAccountLen is the size of an SPL token account.
const tokenAccountLen = 165

// TransferInstruction moves amount between two token accounts of one mint.
//
// Accounts:
// 0. source (writable)
// 1. destination (writable)
// 2. owner (signer)
func TransferInstruction(source, dest, owner solana.PublicKey, amount uint64) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: source, IsWritable: true, IsSigner: false},
		{PublicKey: dest, IsWritable: true, IsSigner: false},
		{PublicKey: owner, IsWritable: false, IsSigner: true},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, amountData(tokenIxTransfer, amount))
}

// MintToInstruction issues amount of mint into dest.
//
// Accounts:
// 0. mint (writable)
// 1. destination (writable)
// 2. mint authority (signer)
func MintToInstruction(mint, dest, authority solana.PublicKey, amount uint64) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: mint, IsWritable: true, IsSigner: false},
		{PublicKey: dest, IsWritable: true, IsSigner: false},
		{PublicKey: authority, IsWritable: false, IsSigner: true},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, amountData(tokenIxMintTo, amount))
}

// BurnInstruction destroys amount held in account.
//
// Accounts:
// 0. account (writable)
// 1. mint (writable)
// 2. owner (signer)
func BurnInstruction(account, mint, owner solana.PublicKey, amount uint64) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: account, IsWritable: true, IsSigner: false},
		{PublicKey: mint, IsWritable: true, IsSigner: false},
		{PublicKey: owner, IsWritable: false, IsSigner: true},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, amountData(tokenIxBurn, amount))
}

// [0] = discriminator, [1:9] = amount (u64, little-endian)
func amountData(discriminator byte, amount uint64) []byte {
	data := make([]byte, 9)
	data[0] = discriminator
	binary.LittleEndian.PutUint64(data[1:9], amount)
	return data
}

// ParseTokenAccount decodes the fields the exchange needs from SPL token
// account data: mint [0:32], owner [32:64], amount [64:72].
func ParseTokenAccount(address solana.PublicKey, data []byte) (exchange.TokenAccount, error) {
	if len(data) < tokenAccountLen {
		return exchange.TokenAccount{}, fmt.Errorf("token account %s: %d bytes, want %d", address, len(data), tokenAccountLen)
	}
	return exchange.TokenAccount{
		Address: address,
		Mint:    solana.PublicKeyFromBytes(data[0:32]),
		Owner:   solana.PublicKeyFromBytes(data[32:64]),
		Amount:  binary.LittleEndian.Uint64(data[64:72]),
	}, nil
}
