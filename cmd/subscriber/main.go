package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/solana-amm/internal/config"
	"github.com/aman-zulfiqar/solana-amm/internal/events"
	"github.com/aman-zulfiqar/solana-amm/internal/models"
)

// subscriber tails liquidity events published by the api.
func main() {
	poolFlag := flag.String("pool", "", "Only follow this pool address")
	kindFlag := flag.String("kind", "", "Only follow this event kind (create_pool, add_liquidity, remove_liquidity)")
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
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	ps, err := events.NewPubSub(rclient, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create subscriber")
	}

	channel := events.ChannelAll
	switch {
	case *poolFlag != "":
		channel = events.PoolChannel(*poolFlag)
	case *kindFlag != "":
		channel = events.KindChannel(models.EventKind(*kindFlag))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ps.Subscribe(gctx, channel, func(ev *models.LiquidityEvent) {
			logger.WithFields(logrus.Fields{
				"kind":     ev.Kind,
				"pool":     ev.Pool,
				"amount_a": ev.AmountA,
				"amount_b": ev.AmountB,
				"amount_c": ev.AmountC,
				"supply":   ev.TotalSupplyC,
			}).Info("liquidity event")
		})
	})
	// Pattern subscription reports activity per pool at debug level.
	g.Go(func() error {
		return ps.PSubscribe(gctx, events.PoolChannel("*"), func(ev *models.LiquidityEvent) {
			logger.WithField("pool", ev.Pool).Debug("pool activity")
		})
	})

	logger.WithField("channel", channel).Info("subscriber running, press Ctrl+C to stop")
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("subscriber failed")
	}
	logger.Info("subscriber stopped")
}
