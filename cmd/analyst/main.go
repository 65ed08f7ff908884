package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm/internal/analytics"
	"github.com/aman-zulfiqar/solana-amm/internal/config"
)

type options struct {
	question string
	model    string
	rowLimit int
	asJSON   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.question, "q", "", "answer one question and exit")
	flag.StringVar(&opts.model, "model", "", "OpenRouter model (default ANALYTICS_MODEL)")
	flag.IntVar(&opts.rowLimit, "rows", 0, "cap on rows a generated query may return")
	flag.BoolVar(&opts.asJSON, "json", false, "print answers as JSON")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env in working directory")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.Level())
	if cfg.OpenRouterAPIKey == "" || cfg.ClickHouseAddr == "" {
		logger.Fatal("OPENROUTER_API_KEY and CLICKHOUSE_ADDR are required")
	}
	if opts.model == "" {
		opts.model = cfg.AnalyticsModel
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent, err := analytics.NewAgent(ctx, analytics.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              opts.model,
		RowLimit:           opts.rowLimit,
		Logger:             logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create analytics agent")
	}
	defer agent.Close()

	if opts.question != "" {
		res, err := agent.Ask(ctx, opts.question)
		if err != nil {
			logger.WithError(err).Fatal("question failed")
		}
		printResult(os.Stdout, res, opts.asJSON)
		return
	}

	fmt.Println("Liquidity analyst. Ask about deposits, withdrawals and share supply; empty line quits.")
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		q := strings.TrimSpace(in.Text())
		if q == "" {
			return
		}
		res, err := agent.Ask(ctx, q)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, analytics.ErrRejectedQuery):
			fmt.Println("could not write a safe query for that, try rephrasing:", err)
		case err != nil:
			fmt.Println("error:", err)
		default:
			printResult(os.Stdout, res, opts.asJSON)
		}
	}
}

func printResult(w io.Writer, res *analytics.AskResult, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
		return
	}
	fmt.Fprintf(w, "\n%s\n\n%s\n", res.SQL, res.Answer)
	if res.Truncated {
		fmt.Fprintf(w, "(answer based on the first %d rows)\n", res.Rows)
	}
	fmt.Fprintln(w)
}
