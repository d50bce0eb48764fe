package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/motoforge/storefront/internal/domain"
	apperrors "github.com/motoforge/storefront/pkg/errors"
	"github.com/motoforge/storefront/pkg/logger"
)

// DefaultHistoryLimit bounds the transition history kept per store.
const DefaultHistoryLimit = 100

// Backend is the durable snapshot store for one wishlist. Load returns an
// error wrapping apperrors.ErrNotFound when nothing has been saved yet.
type Backend interface {
	Load(ctx context.Context) ([]domain.WishlistItem, error)
	Save(ctx context.Context, items []domain.WishlistItem) error
}

// Change describes one effective transition. State is a private copy.
type Change struct {
	Seq    uint64
	Action ActionType
	ItemID string
	State  domain.State
	At     time.Time
}

// Subscriber observes transitions. Subscribers run synchronously while the
// store lock is held, in transition order, and must not call back into the
// store or block.
type Subscriber func(Change)

// Transition is one entry of the audit trail.
type Transition struct {
	Seq       uint64     `json:"seq"`
	Action    ActionType `json:"action"`
	ItemID    string     `json:"itemId,omitempty"`
	ItemCount int        `json:"itemCount"`
	At        time.Time  `json:"at"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for AddedAt and history.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithHistoryLimit caps the audit trail. Non-positive values use the default.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithMetrics records transitions and hydration failures in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

type subscription struct {
	id int
	fn Subscriber
}

// Store is the canonical wishlist of one session. It is safe for concurrent
// use; every operation is serialised by a single mutex.
//
// Lifecycle: New, Hydrate once, serve operations, Close.
type Store struct {
	mu           sync.Mutex
	state        domain.State
	backend      Backend
	hydrated     bool
	closed       bool
	seq          uint64
	subs         []subscription
	nextSubID    int
	history      []Transition
	historyLimit int
	persisters   []*Persister

	now     func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

// New creates an empty store reading its initial snapshot from backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		state:        domain.NewState(nil),
		backend:      backend,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted snapshot into the store. It runs at most once
// and only before the first mutation. A missing, corrupt or unreachable
// snapshot leaves the wishlist empty; the condition is logged and never
// returned to the caller.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydrated {
		return nil
	}
	s.hydrated = true

	if s.backend == nil {
		return nil
	}

	items, err := s.backend.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound):
		s.logger.DebugContext(ctx, "no persisted wishlist, starting empty")
		return nil
	case errors.Is(err, domain.ErrCorruptSnapshot):
		s.metrics.hydrationFailed("corrupt")
		s.logger.WarnContext(ctx, "persisted wishlist is corrupt, starting empty",
			slog.String("error", err.Error()),
		)
		return nil
	default:
		s.metrics.hydrationFailed("unavailable")
		s.logger.WarnContext(ctx, "wishlist backend unavailable, continuing without persisted state",
			slog.String("error", err.Error()),
		)
		return nil
	}

	if len(items) == 0 {
		return nil
	}
	s.dispatch(Action{Type: ActionHydrate, Items: items})
	s.logger.DebugContext(ctx, "wishlist hydrated", slog.Int("item_count", s.state.ItemCount))
	return nil
}

// IsInWishlist reports whether a product is in the wishlist.
func (s *Store) IsInWishlist(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Contains(id)
}

// AddToWishlist inserts the item stamped with the current time. It returns
// false, leaving the existing entry and its AddedAt untouched, when the id is
// already present.
func (s *Store) AddToWishlist(input domain.ItemInput) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(input)
}

// RemoveFromWishlist removes the item with id. Removing an absent id is a
// no-op and returns false.
func (s *Store) RemoveFromWishlist(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatch(Action{Type: ActionRemove, ID: id})
}

// ToggleWishlist removes the item if present and adds it otherwise. The
// membership check and the mutation happen under one lock. An input without
// an id changes nothing and reports ToggleIgnored.
func (s *Store) ToggleWishlist(input domain.ItemInput) domain.ToggleResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Contains(input.ID) {
		s.dispatch(Action{Type: ActionRemove, ID: input.ID})
		return domain.ToggleRemoved
	}
	if !s.add(input) {
		return domain.ToggleIgnored
	}
	return domain.ToggleAdded
}

// ClearWishlist removes every item and returns how many were removed.
func (s *Store) ClearWishlist() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.state.ItemCount
	s.dispatch(Action{Type: ActionClear})
	return n
}

// State returns a copy of the current state.
func (s *Store) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Items returns a copy of the items in insertion order.
func (s *Store) Items() []domain.WishlistItem {
	return s.State().Items
}

// ItemCount returns the number of items.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ItemCount
}

// History returns the retained transitions, oldest first.
func (s *Store) History() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Transition, len(s.history))
	copy(out, s.history)
	return out
}

// Subscribe registers fn for every subsequent transition and returns a
// function that removes it.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// AttachPersister subscribes p to the store and makes Close flush it.
func (s *Store) AttachPersister(p *Persister) {
	s.Subscribe(p.Notify)

	s.mu.Lock()
	s.persisters = append(s.persisters, p)
	s.mu.Unlock()
}

// Close detaches every subscriber and flushes attached persisters. The store
// keeps answering reads and in-memory mutations afterwards, but nothing more
// is persisted. Close is idempotent.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.subs = nil
	persisters := s.persisters
	s.persisters = nil
	s.mu.Unlock()

	var errs []error
	for _, p := range persisters {
		if err := p.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// add assumes s.mu is held.
func (s *Store) add(input domain.ItemInput) bool {
	if input.ID == "" || s.state.Contains(input.ID) {
		return false
	}
	return s.dispatch(Action{Type: ActionAdd, Item: domain.NewItem(input, s.now())})
}

// dispatch reduces a into the current state and, when it changed anything,
// records history and notifies subscribers. s.mu must be held.
func (s *Store) dispatch(a Action) bool {
	if a.Type != ActionHydrate {
		s.hydrated = true
	}

	next, changed := Reduce(s.state, a)
	if !changed {
		return false
	}
	s.state = next
	s.seq++

	itemID := a.ID
	if a.Type == ActionAdd {
		itemID = a.Item.ID
	}
	at := s.now().UTC()

	s.record(Transition{Seq: s.seq, Action: a.Type, ItemID: itemID, ItemCount: next.ItemCount, At: at})
	s.metrics.transition(a.Type)

	for _, sub := range s.subs {
		sub.fn(Change{Seq: s.seq, Action: a.Type, ItemID: itemID, State: next.Clone(), At: at})
	}
	return true
}

func (s *Store) record(t Transition) {
	if len(s.history) >= s.historyLimit {
		copy(s.history, s.history[1:])
		s.history = s.history[:len(s.history)-1]
	}
	s.history = append(s.history, t)
}
