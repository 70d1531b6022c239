package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/solvault/vault-engine/internal/events"
)

const (
	eventsChannel       = "vault:events"
	eventsChannelPrefix = "vault:events:"

	recentSignalsKey = "vault:signals:recent"
	recentSignalsMax = 100
)

// envelope is the wire form on the aggregate channel; kind-specific channels
// carry the bare event payload.
type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// RedisEventSink fans engine events out over Redis Pub/Sub and keeps a
// bounded list of the most recent trade signals for the API.
type RedisEventSink struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisEventSink(addr string, logger *logrus.Logger) *RedisEventSink {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisEventSink{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		logger: logger,
	}
}

// NewRedisEventSinkWithClient wraps an existing client, used by tests.
func NewRedisEventSinkWithClient(client *redis.Client, logger *logrus.Logger) (*RedisEventSink, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisEventSink{client: client, logger: logger}, nil
}

// Publish sends the event to the aggregate channel and its kind-specific
// channel in one pipeline. Trade signals are additionally pushed onto the
// recent-signals list, trimmed to a fixed length.
func (s *RedisEventSink) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	wrapped, err := json.Marshal(envelope{Kind: event.Kind(), Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Publish(ctx, eventsChannel, wrapped)
	pipe.Publish(ctx, eventsChannelPrefix+event.Kind(), data)
	if event.Kind() == events.KindTradeSignal {
		pipe.LPush(ctx, recentSignalsKey, data)
		pipe.LTrim(ctx, recentSignalsKey, 0, recentSignalsMax-1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	s.logger.WithField("kind", event.Kind()).Debug("event published")
	return nil
}

// RecentTradeSignals returns the newest trade signals, newest first.
func (s *RedisEventSink) RecentTradeSignals(ctx context.Context, limit int64) ([]*events.TradeSignalEvent, error) {
	if limit <= 0 || limit > recentSignalsMax {
		limit = recentSignalsMax
	}

	vals, err := s.client.LRange(ctx, recentSignalsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("recent trade signals: %w", err)
	}

	out := make([]*events.TradeSignalEvent, 0, len(vals))
	for _, v := range vals {
		var sig events.TradeSignalEvent
		if err := json.Unmarshal([]byte(v), &sig); err != nil {
			s.logger.WithError(err).Warn("skipping malformed trade signal")
			continue
		}
		out = append(out, &sig)
	}
	return out, nil
}

// SubscribeTradeSignals delivers trade signals to handler until ctx is
// cancelled or the subscription drops.
func (s *RedisEventSink) SubscribeTradeSignals(ctx context.Context, handler func(*events.TradeSignalEvent)) error {
	pubsub := s.client.Subscribe(ctx, eventsChannelPrefix+events.KindTradeSignal)
	defer pubsub.Close()

	s.logger.WithField("channel", eventsChannelPrefix+events.KindTradeSignal).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var sig events.TradeSignalEvent
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				s.logger.WithError(err).Warn("skipping malformed trade signal")
				continue
			}
			handler(&sig)
		}
	}
}

// SubscribeAll delivers every engine event to handler, decoding by kind.
func (s *RedisEventSink) SubscribeAll(ctx context.Context, handler func(events.Event)) error {
	pubsub := s.client.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()

	s.logger.WithField("channel", eventsChannel).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				s.logger.WithError(err).Warn("skipping malformed event")
				continue
			}
			handler(event)
		}
	}
}

func decodeEnvelope(payload []byte) (events.Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Kind {
	case events.KindBalanceManagerCreated:
		var e events.BalanceManagerCreatedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case events.KindUserDeposit:
		var e events.UserDepositEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case events.KindUserWithdraw:
		var e events.UserWithdrawEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case events.KindTradeSignal:
		var e events.TradeSignalEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
}

func (s *RedisEventSink) Close() error {
	return s.client.Close()
}
