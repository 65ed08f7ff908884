package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

type quoteOptions struct {
	reserveIn   uint64
	reserveOut  uint64
	fee         string
	slippageBps uint16
}

func newQuoteCmd() *cobra.Command {
	opts := &quoteOptions{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price an exchange against given reserves",
	}
	cmd.PersistentFlags().Uint64Var(&opts.reserveIn, "reserve-in", 0, "reserve of the asset paid in")
	cmd.PersistentFlags().Uint64Var(&opts.reserveOut, "reserve-out", 0, "reserve of the asset paid out")
	cmd.PersistentFlags().StringVar(&opts.fee, "fee", exchange.DefaultFee.String(), `fee as "n/d" or a decimal fraction`)
	cmd.PersistentFlags().Uint16Var(&opts.slippageBps, "slippage-bps", 0, "slippage tolerance in basis points")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "in <amount-in>",
			Short: "Output received for an exact input",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQuote(cmd, opts, true, args[0])
			},
		},
		&cobra.Command{
			Use:   "out <amount-out>",
			Short: "Input required for an exact output",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQuote(cmd, opts, false, args[0])
			},
		},
	)
	return cmd
}

type quoteResult struct {
	*exchange.Quote
	MinAmountOut uint64 `json:"min_amount_out,omitempty"`
	MaxAmountIn  uint64 `json:"max_amount_in,omitempty"`
}

func runQuote(cmd *cobra.Command, opts *quoteOptions, exactIn bool, arg string) error {
	amt, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("amount %q: must be an unsigned integer", arg)
	}
	fee, err := exchange.ParseFee(opts.fee)
	if err != nil {
		return err
	}
	q, err := exchange.Price(exactIn, amt, opts.reserveIn, opts.reserveOut, fee)
	if err != nil {
		return err
	}

	res := quoteResult{Quote: q}
	if opts.slippageBps > 0 {
		if exactIn {
			res.MinAmountOut = exchange.ApplySlippage(q.AmountOut, opts.slippageBps)
		} else {
			res.MaxAmountIn = exchange.ApplySlippageUp(q.AmountIn, opts.slippageBps)
		}
	}
	return printJSON(cmd.OutOrStdout(), res)
}
