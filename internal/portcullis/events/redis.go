package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	publishTimeout   = 2 * time.Second
	defaultQueueSize = 1024
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen caps the stream approximately. 0 leaves it unbounded.
	MaxLen int64
	// QueueSize bounds events waiting to be sent. Defaults to 1024; events
	// published while the queue is full are dropped.
	QueueSize int
}

// RedisPublisher appends events to a Redis stream with XADD. Publish only
// enqueues; a single goroutine sends, so a slow or unreachable Redis never
// delays the caller.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger

	queue chan Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewRedisPublisher(client *redis.Client, cfg RedisConfig, logger *zap.Logger) *RedisPublisher {
	stream := cfg.Stream
	if stream == "" {
		stream = "portcullis:events"
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &RedisPublisher{
		client: client,
		stream: stream,
		maxLen: cfg.MaxLen,
		logger: logger,
		queue:  make(chan Event, size),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Publish queues e and returns immediately. Events published after Close
// are discarded.
func (p *RedisPublisher) Publish(_ context.Context, e Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- e:
	default:
		p.logger.Warn("event queue full, dropping event",
			zap.String("kind", string(e.Kind)),
			zap.String("controller_id", e.ControllerID))
	}
}

// Close sends whatever is still queued and stops the sender. Safe to call
// more than once.
func (p *RedisPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}

func (p *RedisPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		p.send(e)
	}
}

func (p *RedisPublisher) send(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("encode event", zap.String("kind", string(e.Kind)), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"kind":          string(e.Kind),
			"controller_id": e.ControllerID,
			"data":          string(data),
			"timestamp":     e.At.UnixMilli(),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		p.logger.Warn("publish event",
			zap.String("stream", p.stream),
			zap.String("kind", string(e.Kind)),
			zap.Error(err))
	}
}
