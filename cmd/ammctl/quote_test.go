package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuoteIn(t *testing.T) {
	out, err := runCmd(t, "quote", "in", "1000", "--reserve-in", "10000", "--reserve-out", "10000", "--slippage-bps", "100")
	require.NoError(t, err)

	var res struct {
		AmountOut    uint64 `json:"amount_out"`
		MinAmountOut uint64 `json:"min_amount_out"`
		ExactInput   bool   `json:"exact_input"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint64(901), res.AmountOut)
	assert.Equal(t, uint64(891), res.MinAmountOut)
	assert.True(t, res.ExactInput)
}

func TestQuoteOut(t *testing.T) {
	out, err := runCmd(t, "quote", "out", "901", "--reserve-in", "10000", "--reserve-out", "10000", "--fee", "97/10000")
	require.NoError(t, err)

	var res struct {
		AmountIn uint64 `json:"amount_in"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint64(1000), res.AmountIn)
}

func TestQuoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad amount", []string{"quote", "in", "ten", "--reserve-in", "1", "--reserve-out", "1"}, "unsigned integer"},
		{"empty reserve", []string{"quote", "in", "10"}, "reserve is empty"},
		{"bad fee", []string{"quote", "in", "10", "--reserve-in", "1", "--reserve-out", "1", "--fee", "1/1"}, "invalid fee"},
		{"drain", []string{"quote", "out", "5", "--reserve-in", "5", "--reserve-out", "5"}, "insufficient reserve"},
		{"missing arg", []string{"quote", "in"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
