package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/metrics"
)

const (
	sinkRedis      = "redis"
	sinkRelay      = "redis_relay"
	publishTimeout = 2 * time.Second
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// messageSource is satisfied by *redis.PubSub
type messageSource interface {
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// Publisher sends invalidation signals over Redis Pub/Sub so every API replica
// and cache reader hears about them
type Publisher struct {
	client    redisPublisher
	subscribe func(ctx context.Context, channel string) messageSource
	closer    func() error
	channel   string
	origin    string
	logger    *zap.Logger
	wg        sync.WaitGroup

	stopRelay func()
	relayDone chan struct{}
}

// NewPublisher connects to the Redis server at url and publishes on channel.
// origin identifies this process; Relay skips signals carrying it.
func NewPublisher(ctx context.Context, url, channel, origin string, logger *zap.Logger) (*Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	p := newPublisher(client, channel, logger)
	p.origin = origin
	p.subscribe = func(ctx context.Context, channel string) messageSource {
		return client.Subscribe(ctx, channel)
	}
	p.closer = client.Close
	return p, nil
}

func newPublisher(client redisPublisher, channel string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, channel: channel, logger: logger}
}

// Signal publishes s in the background
func (p *Publisher) Signal(s Signal) {
	s.Origin = p.origin
	data, err := json.Marshal(s)
	if err != nil {
		p.logger.Error("failed to marshal invalidation signal", zap.Error(err))
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
			metrics.InvalidationsTotal.WithLabelValues(sinkRedis, metrics.OutcomeFailed).Inc()
			p.logger.Warn("failed to publish invalidation signal",
				zap.String("channel", p.channel),
				zap.Int64("cfsId", s.CallID),
				zap.Error(err))
			return
		}
		metrics.InvalidationsTotal.WithLabelValues(sinkRedis, metrics.OutcomeSent).Inc()
	}()
}

// Relay subscribes to the channel and hands signals published by other
// processes to target until Close is called
func (p *Publisher) Relay(target Signaler) error {
	if p.subscribe == nil {
		return errors.New("publisher has no subscription client")
	}
	if p.stopRelay != nil {
		return errors.New("publisher is already relaying")
	}

	ctx, cancel := context.WithCancel(context.Background())
	src := p.subscribe(ctx, p.channel)
	p.relayDone = make(chan struct{})
	p.stopRelay = func() {
		cancel()
		if err := src.Close(); err != nil {
			p.logger.Warn("failed to close invalidation subscription", zap.Error(err))
		}
	}
	go p.relay(src.Channel(), target)
	return nil
}

func (p *Publisher) relay(msgs <-chan *redis.Message, target Signaler) {
	defer close(p.relayDone)
	for msg := range msgs {
		var s Signal
		if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
			metrics.InvalidationsTotal.WithLabelValues(sinkRelay, metrics.OutcomeFailed).Inc()
			p.logger.Warn("dropping malformed invalidation signal",
				zap.String("channel", msg.Channel),
				zap.Error(err))
			continue
		}
		if p.origin != "" && s.Origin == p.origin {
			continue
		}
		target.Signal(s)
		metrics.InvalidationsTotal.WithLabelValues(sinkRelay, metrics.OutcomeSent).Inc()
	}
}

// Close stops relaying, waits for in-flight publishes and closes the client it owns
func (p *Publisher) Close() error {
	if p.stopRelay != nil {
		p.stopRelay()
		<-p.relayDone
		p.stopRelay = nil
	}
	p.wg.Wait()
	if p.closer != nil {
		return p.closer()
	}
	return nil
}
