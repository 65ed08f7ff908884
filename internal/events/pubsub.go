package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm/internal/models"
)

const (
	ChannelAll        = "liquidity:all"
	poolChannelPrefix = "liquidity:pool:"
	kindChannelPrefix = "liquidity:kind:"
)

func PoolChannel(pool string) string { return poolChannelPrefix + pool }

func KindChannel(kind models.EventKind) string { return kindChannelPrefix + string(kind) }

// PubSub publishes liquidity events on redis channels and tails them.
type PubSub struct {
	client *redis.Client
	log    *logrus.Logger
}

func NewPubSub(client *redis.Client, log *logrus.Logger) (*PubSub, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if log == nil {
		log = logrus.New()
	}
	return &PubSub{client: client, log: log}, nil
}

// Emit publishes ev to the all, per-pool and per-kind channels.
func (p *PubSub) Emit(ctx context.Context, ev *models.LiquidityEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	channels := []string{
		ChannelAll,
		PoolChannel(ev.Pool),
		KindChannel(ev.Kind),
	}

	pipe := p.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe calls handler for every event on channel until ctx is done.
func (p *PubSub) Subscribe(ctx context.Context, channel string, handler func(*models.LiquidityEvent)) error {
	sub := p.client.Subscribe(ctx, channel)
	defer sub.Close()

	p.log.WithField("channel", channel).Info("subscribed")
	return p.consume(ctx, sub, handler)
}

// PSubscribe is Subscribe for a channel pattern such as "liquidity:pool:*".
func (p *PubSub) PSubscribe(ctx context.Context, pattern string, handler func(*models.LiquidityEvent)) error {
	sub := p.client.PSubscribe(ctx, pattern)
	defer sub.Close()

	p.log.WithField("pattern", pattern).Info("subscribed")
	return p.consume(ctx, sub, handler)
}

func (p *PubSub) consume(ctx context.Context, sub *redis.PubSub, handler func(*models.LiquidityEvent)) error {
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := Decode([]byte(msg.Payload))
			if err != nil {
				p.log.WithError(err).WithField("channel", msg.Channel).Warn("dropping malformed event")
				continue
			}
			handler(ev)
		}
	}
}

// Decode parses one published event.
func Decode(data []byte) (*models.LiquidityEvent, error) {
	var ev models.LiquidityEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if ev.Kind == "" || ev.Pool == "" {
		return nil, fmt.Errorf("event missing kind or pool")
	}
	return &ev, nil
}
