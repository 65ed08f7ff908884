package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/solana-amm/internal/analytics"
	"github.com/aman-zulfiqar/solana-amm/internal/config"
	"github.com/aman-zulfiqar/solana-amm/internal/events"
	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
	"github.com/aman-zulfiqar/solana-amm/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm/internal/lock"
	"github.com/aman-zulfiqar/solana-amm/internal/metrics"
	"github.com/aman-zulfiqar/solana-amm/internal/registry"
	"github.com/aman-zulfiqar/solana-amm/internal/server"
	"github.com/aman-zulfiqar/solana-amm/internal/wallet"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs the shared registry, the cross-process pool lock and event
	// pub/sub. It is optional with the memory store.
	var rclient *redis.Client
	if cfg.StoreBackend == config.BackendRedis || cfg.RedisAddr != "" {
		rclient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rclient.Ping(ctx).Err(); err != nil {
			if cfg.StoreBackend == config.BackendRedis {
				logger.WithError(err).Fatal("failed to connect to Redis")
			}
			logger.WithError(err).Warn("redis unavailable, events will not be published")
			_ = rclient.Close()
			rclient = nil
		} else {
			defer rclient.Close()
		}
	}

	store, locker := buildStore(cfg, rclient, logger)
	led, custodian := buildLedger(cfg, logger)

	// Event sinks: redis pub/sub and ClickHouse history, each optional.
	var sinks events.Fanout
	if rclient != nil {
		ps, err := events.NewPubSub(rclient, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to create event publisher")
		}
		sinks = append(sinks, ps)
	}
	if cfg.ClickHouseAddr != "" {
		ch, err := events.NewClickHouseSink(ctx, events.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, liquidity history disabled")
		} else {
			defer ch.Close()
			sinks = append(sinks, ch)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	fee, _ := cfg.ExchangeFee()
	programID, _ := cfg.ExchangeProgramID()
	mcfg := exchange.ManagerConfig{
		ProgramID: programID,
		Custodian: custodian,
		Fee:       fee,
		Store:     store,
		Ledger:    led,
		Locker:    locker,
		Observer:  metrics.New(reg),
		Log:       logger,
	}
	if len(sinks) > 0 {
		mcfg.Events = sinks
	}
	manager, err := exchange.NewManager(mcfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to create exchange manager")
	}

	if cfg.PoolsFile != "" {
		if _, err := registry.Bootstrap(ctx, manager, cfg.PoolsFile, logger); err != nil {
			logger.WithError(err).Fatal("failed to bootstrap pools")
		}
	}

	// Analytics agent (optional)
	aBase := analytics.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.AnalyticsModel,
		Logger:             logger,
	}
	h := &server.Handlers{
		Manager:         manager,
		AnalyticsConfig: aBase,
		Metrics:         promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		DevMode:         cfg.DevMode,
		Logger:          logger,
	}
	if cfg.OpenRouterAPIKey != "" && cfg.ClickHouseAddr != "" {
		agent, err := analytics.NewAgent(ctx, aBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize analytics agent")
		} else {
			defer agent.Close()
			h.Analytics = agent
		}
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"addr":   cfg.APIAddr,
			"store":  cfg.StoreBackend,
			"ledger": cfg.LedgerBackend,
			"fee":    manager.DefaultFee().String(),
		}).Info("api server starting")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("api server failed")
	}
}

func buildStore(cfg *config.Config, rclient *redis.Client, logger *logrus.Logger) (exchange.Store, exchange.Locker) {
	if cfg.StoreBackend != config.BackendRedis {
		return registry.NewMemory(), lock.NewLocal()
	}
	store, err := registry.NewRedis(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create redis registry")
	}
	locker, err := lock.NewRedis(rclient, lock.RedisConfig{TTL: cfg.LockTTL, Log: logger})
	if err != nil {
		logger.WithError(err).Fatal("failed to create redis lock")
	}
	return store, locker
}

// buildLedger returns the ledger and the account that custodies pool reserves.
// On Solana the authority wallet custodies them unless EXCHANGE_CUSTODIAN is set.
func buildLedger(cfg *config.Config, logger *logrus.Logger) (exchange.Ledger, solana.PublicKey) {
	custodian, _ := cfg.ExchangeCustodian()
	if cfg.LedgerBackend != config.BackendSolana {
		logger.Warn("using in-memory ledger; balances are lost on restart")
		if !cfg.DevMode {
			logger.Warn("memory ledger trusts the authority named in each request; set DEV_MODE or use LEDGER_BACKEND=solana")
		}
		mem := ledger.NewMemory()
		if cfg.LedgerAccountsFile != "" {
			n, err := mem.Bootstrap(cfg.LedgerAccountsFile, logger)
			if err != nil {
				logger.WithError(err).Fatal("failed to bootstrap ledger accounts")
			}
			logger.WithField("accounts", n).Info("ledger accounts opened")
		}
		return mem, custodian
	}

	w, err := wallet.NewWallet(wallet.WalletConfig{
		RPCURL:         cfg.RPCUrl,
		Timeout:        cfg.HTTPTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
		PrivateKey:     cfg.AuthorityPrivateKey,
		Signers:        cfg.SignerPrivateKeys,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Logger:         logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create wallet")
	}
	led, err := ledger.NewSolana(w, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create solana ledger")
	}
	if custodian.IsZero() {
		custodian = w.PublicKey()
	}
	logger.WithFields(logrus.Fields{
		"authority": w.Address(),
		"signers":   len(cfg.SignerPrivateKeys),
	}).Info("using solana ledger")
	return led, custodian
}
