package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
	"github.com/yungbote/taskmaster-backend/internal/realtime"
)

const (
	DefaultChannel = "taskmaster:sse"

	envelopeVersion = 1
	publishTimeout  = 3 * time.Second
)

// envelope is the wire form of a progress event on the pub/sub channel.
type envelope struct {
	V      int                 `json:"v"`
	Origin string              `json:"origin"`
	SentAt time.Time           `json:"sent_at"`
	Msg    realtime.SSEMessage `json:"msg"`
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	origin  string

	mu   sync.Mutex
	subs []*goredis.PubSub
}

// NewRedisBus fans progress events out on one pub/sub channel of rdb so every
// instance's SSE hub sees them. The client is shared and is not closed by the
// bus.
func NewRedisBus(log *logger.Logger, rdb *goredis.Client, channel string) (Bus, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	origin := uuid.NewString()
	return &redisBus{
		log:     log.With("service", "RedisSSEBus", "origin", origin),
		rdb:     rdb,
		channel: channel,
		origin:  origin,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	raw, err := encode(b.origin, msg, time.Now().UTC())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s on %s: %w", msg.Event, b.channel, err)
	}
	return nil
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	b.log.Info("Forwarding progress events", "channel", b.channel)

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				msg, err := decode(m.Payload)
				if err != nil {
					b.log.Warn("Dropping malformed progress event", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

// Close ends every forwarder started on this bus.
func (b *redisBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func encode(origin string, msg realtime.SSEMessage, at time.Time) ([]byte, error) {
	if msg.Channel == "" || msg.Event == "" {
		return nil, errors.New("message missing channel or event")
	}
	return json.Marshal(envelope{V: envelopeVersion, Origin: origin, SentAt: at, Msg: msg})
}

func decode(payload string) (realtime.SSEMessage, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return realtime.SSEMessage{}, err
	}
	if env.V != envelopeVersion {
		return realtime.SSEMessage{}, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	if env.Msg.Channel == "" || env.Msg.Event == "" {
		return realtime.SSEMessage{}, errors.New("message missing channel or event")
	}
	return env.Msg, nil
}
