package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type PollerConfig struct {
	// Interval between pulls for one controller. Defaults to 1s.
	Interval time.Duration

	// Batch is the pull limit. Defaults to 5.
	Batch int
}

// commandMessage is what a controller receives on its command topic.
type commandMessage struct {
	CommandID string            `json:"commandId"`
	Type      types.CommandType `json:"type"`
	Payload   map[string]any    `json:"payload"`
	ExpiresAt *time.Time        `json:"expiresAt"`
}

// Poller runs one command pull loop per controller seen on the bus. Loops
// are started lazily by Ensure and all exit on Stop or when the context
// given to Start is cancelled.
type Poller struct {
	core     Core
	broker   Broker
	topics   Topics
	interval time.Duration
	batch    int
	logger   *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running map[string]bool
	locks   map[string]*sync.Mutex
	wg      sync.WaitGroup
}

func NewPoller(core Core, broker Broker, topics Topics, cfg PollerConfig, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		core:     core,
		broker:   broker,
		topics:   topics,
		interval: cfg.Interval,
		batch:    cfg.Batch,
		logger:   logger,
		running:  make(map[string]bool),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Start arms the poller. Ensure is a no-op until Start is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.logger.Info("command poller started",
		zap.Duration("interval", p.interval),
		zap.Int("batch", p.batch))
}

// Stop cancels every loop and waits for them to exit. Safe to call more
// than once, and before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Ensure starts the pull loop for controllerID unless one is running. The
// first pull happens immediately.
func (p *Poller) Ensure(controllerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil || p.ctx.Err() != nil || p.running[controllerID] {
		return
	}
	p.running[controllerID] = true
	p.wg.Add(1)
	go p.loop(p.ctx, controllerID)
}

// Running reports whether a loop exists for controllerID.
func (p *Poller) Running(controllerID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running[controllerID]
}

func (p *Poller) loop(ctx context.Context, controllerID string) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		delete(p.running, controllerID)
		p.mu.Unlock()
	}()

	p.pollLogged(ctx, controllerID)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollLogged(ctx, controllerID)
		}
	}
}

func (p *Poller) pollLogged(ctx context.Context, controllerID string) {
	if _, err := p.PollNow(ctx, controllerID); err != nil && ctx.Err() == nil {
		p.logger.Error("command polling failed",
			zap.String("controller_id", controllerID),
			zap.Error(err))
	}
}

// PollNow pulls one batch and publishes each command, in order, on the
// controller's command topic. Polls for the same controller never overlap.
func (p *Poller) PollNow(ctx context.Context, controllerID string) (int, error) {
	lock := p.lockFor(controllerID)
	lock.Lock()
	defer lock.Unlock()

	cmds, err := p.core.Pull(ctx, types.PullRequest{ControllerID: controllerID, Limit: p.batch})
	if err != nil {
		return 0, err
	}

	topic := p.topics.Command(controllerID)
	for i, c := range cmds {
		data, err := json.Marshal(commandMessage{
			CommandID: c.ID,
			Type:      c.Type,
			Payload:   c.Payload,
			ExpiresAt: c.ExpiresAt,
		})
		if err != nil {
			return i, err
		}
		if err := p.broker.Publish(topic, data); err != nil {
			return i, err
		}
		p.logger.Debug("command delivered",
			zap.String("controller_id", controllerID),
			zap.String("command_id", c.ID),
			zap.String("type", string(c.Type)))
	}
	return len(cmds), nil
}

func (p *Poller) lockFor(controllerID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[controllerID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[controllerID] = l
	}
	return l
}
