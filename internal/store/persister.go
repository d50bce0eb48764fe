package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/pkg/logger"
)

// PersisterConfig tunes write coalescing.
type PersisterConfig struct {
	// Debounce is the quiet period after the latest change before a write.
	// Zero writes as soon as the writer is free.
	Debounce time.Duration

	// MaxWait bounds how long a pending change may be held back by a steady
	// stream of newer changes. Zero means no bound.
	MaxWait time.Duration

	// Timeout bounds each backend write.
	Timeout time.Duration
}

// DefaultPersisterConfig returns the production coalescing settings.
func DefaultPersisterConfig() PersisterConfig {
	return PersisterConfig{
		Debounce: 250 * time.Millisecond,
		MaxWait:  2 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// Persister writes the latest wishlist snapshot to a Backend. It is the
// single writer for its backend: one goroutine, last write wins. Failed
// writes are logged and counted; the in-memory state is never rolled back.
type Persister struct {
	backend Backend
	cfg     PersisterConfig
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	pending []domain.WishlistItem
	dirty   bool

	kick      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewPersister starts a writer goroutine for backend. Call Close to stop it.
// l and m may be nil.
func NewPersister(backend Backend, cfg PersisterConfig, l *slog.Logger, m *Metrics) *Persister {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPersisterConfig().Timeout
	}
	if l == nil {
		l = logger.Discard()
	}

	p := &Persister{
		backend: backend,
		cfg:     cfg,
		logger:  l,
		metrics: m,
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Notify is a Subscriber. It records the new snapshot and wakes the writer
// without blocking. Hydration is not written back.
func (p *Persister) Notify(c Change) {
	if c.Action == ActionHydrate {
		return
	}

	p.mu.Lock()
	p.pending = c.State.Items
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Close writes any pending snapshot and stops the writer. It returns
// ctx.Err() if ctx ends first; the final write still completes in the
// background within the configured timeout.
func (p *Persister) Close(ctx context.Context) error {
	p.closeOnce.Do(func() { close(p.stop) })

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Persister) run() {
	defer close(p.done)

	var (
		timer        *time.Timer
		timerC       <-chan time.Time
		firstPending time.Time
	)

	for {
		select {
		case <-p.kick:
			if p.cfg.Debounce <= 0 {
				p.write()
				continue
			}

			now := time.Now()
			if timerC == nil {
				firstPending = now
			}
			wait := p.cfg.Debounce
			if p.cfg.MaxWait > 0 {
				if limit := firstPending.Add(p.cfg.MaxWait).Sub(now); limit < wait {
					wait = max(limit, 0)
				}
			}
			if timer == nil {
				timer = time.NewTimer(wait)
			} else {
				timer.Reset(wait)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			p.write()

		case <-p.stop:
			if timer != nil {
				timer.Stop()
			}
			p.write()
			return
		}
	}
}

// write saves the pending snapshot, if any.
func (p *Persister) write() {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	items := p.pending
	p.dirty = false
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := p.backend.Save(ctx, items)
	p.metrics.persisted(time.Since(start).Seconds(), err)
	if err != nil {
		p.logger.Warn("failed to persist wishlist, keeping in-memory state",
			slog.Int("item_count", len(items)),
			slog.String("error", err.Error()),
		)
		return
	}
	p.logger.Debug("wishlist persisted", slog.Int("item_count", len(items)))
}
