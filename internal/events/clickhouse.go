package events

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm/internal/models"
)

// Table is the ClickHouse table holding liquidity history.
const Table = "liquidity_events"

const createTable = `
CREATE TABLE IF NOT EXISTS %s.%s (
	id             String,
	kind           LowCardinality(String),
	timestamp      DateTime64(3, 'UTC'),
	pool           String,
	authority      String,
	token_a        String,
	token_b        String,
	token_c        String,
	amount_a       UInt64,
	amount_b       UInt64,
	amount_c       UInt64,
	total_supply_c UInt64
) ENGINE = MergeTree
ORDER BY (pool, timestamp)`

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseSink appends liquidity events to ClickHouse.
type ClickHouseSink struct {
	conn     driver.Conn
	database string
	log      *logrus.Logger
}

func NewClickHouseSink(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseSink, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Database == "" {
		cfg.Database = "solana"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	s := &ClickHouseSink{conn: conn, database: cfg.Database, log: cfg.Logger}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")
	return s, nil
}

func (s *ClickHouseSink) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf(createTable, s.database, Table)); err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}
	return nil
}

func (s *ClickHouseSink) Emit(ctx context.Context, ev *models.LiquidityEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.%s (
			id, kind, timestamp, pool, authority, token_a, token_b, token_c,
			amount_a, amount_b, amount_c, total_supply_c
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.database, Table)

	err := s.conn.Exec(ctx, query,
		ev.ID,
		string(ev.Kind),
		ev.Timestamp,
		ev.Pool,
		ev.Authority,
		ev.TokenA,
		ev.TokenB,
		ev.TokenC,
		ev.AmountA,
		ev.AmountB,
		ev.AmountC,
		ev.TotalSupplyC,
	)
	if err != nil {
		return fmt.Errorf("failed to insert liquidity event: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
