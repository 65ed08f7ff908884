package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
	"github.com/aman-zulfiqar/solana-amm/internal/registry"
)

func newPoolCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Read pools from the redis registry",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List every registered pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRegistry(cmd.Context(), root, func(ctx context.Context, store exchange.Store) error {
				pools, err := store.List(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), pools)
				}
				return printPools(cmd, pools)
			})
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	show := &cobra.Command{
		Use:   "show <pool-address>",
		Short: "Print one pool record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("pool address: %w", err)
			}
			return withRegistry(cmd.Context(), root, func(ctx context.Context, store exchange.Store) error {
				pool, err := store.Get(ctx, addr)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), pool)
			})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func withRegistry(ctx context.Context, root *rootOptions, fn func(context.Context, exchange.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: root.redisAddr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", root.redisAddr, err)
	}
	store, err := registry.NewRedis(client)
	if err != nil {
		return err
	}
	return fn(ctx, store)
}

func printPools(cmd *cobra.Command, pools []*exchange.Exchange) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tTOKEN A\tTOKEN B\tFEE\tSUPPLY C")
	for _, p := range pools {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", p.Address, p.TokenA, p.TokenB, p.Fee(), p.TotalSupplyC)
	}
	return tw.Flush()
}
