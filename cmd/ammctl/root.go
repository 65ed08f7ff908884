package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	redisAddr string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ammctl",
		Short:         "Inspect AMM pools and price exchanges",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.redisAddr, "redis", envOr("REDIS_ADDR", "localhost:6379"), "redis address of the pool registry")

	cmd.AddCommand(newQuoteCmd(), newPoolCmd(opts))
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
