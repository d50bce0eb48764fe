package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/internal/repository"
	"github.com/motoforge/storefront/internal/store"
	apperrors "github.com/motoforge/storefront/pkg/errors"
	"github.com/motoforge/storefront/pkg/validator"
)

// ErrClosed is returned once the service has been shut down.
var ErrClosed = apperrors.Unavailable("wishlist", errors.New("wishlist service closed"))

// EventPublisher publishes wishlist domain events. *event.Producer
// implements it.
type EventPublisher interface {
	PublishWishlistUpdated(ctx context.Context, sessionID, action, productID string, state domain.State) error
	PublishWishlistCleared(ctx context.Context, sessionID string, removed int) error
}

// AddItemInput is a wishlist item as sent by a client. When Name is empty
// the remaining fields are taken from the catalog entry with the same ID.
type AddItemInput struct {
	ID          string  `json:"id" validate:"required,max=128"`
	Name        string  `json:"name" validate:"max=256"`
	Price       float64 `json:"price" validate:"gte=0"`
	Image       string  `json:"image" validate:"max=2048"`
	Category    string  `json:"category" validate:"max=128"`
	Description string  `json:"description" validate:"max=4096"`
}

// WishlistConfig tunes the per-session stores.
type WishlistConfig struct {
	Persister    store.PersisterConfig
	HistoryLimit int

	// Registerer receives store and session collectors. Nil disables metrics.
	Registerer prometheus.Registerer
}

// session is one shopper's wishlist. ready is closed once hydration has
// finished; lastUsed holds unix nanoseconds.
type session struct {
	store    *store.Store
	ready    chan struct{}
	lastUsed atomic.Int64
}

// WishlistService owns one store per shopper session and is the only way the
// transport layer reaches them.
//
// mu guards the registry. Operations hold the read lock for their whole
// duration so eviction, which takes the write lock, never closes a store
// that is in use.
type WishlistService struct {
	repo     repository.WishlistRepository
	products repository.ProductRepository
	events   EventPublisher
	cfg      WishlistConfig
	logger   *slog.Logger
	now      func() time.Time

	storeMetrics *store.Metrics
	active       prometheus.Gauge

	mu       sync.RWMutex
	sessions map[string]*session
	closing  map[string]chan struct{}
	closed   bool
}

// NewWishlistService creates a new wishlist service.
func NewWishlistService(
	repo repository.WishlistRepository,
	products repository.ProductRepository,
	events EventPublisher,
	cfg WishlistConfig,
	logger *slog.Logger,
) *WishlistService {
	s := &WishlistService{
		repo:     repo,
		products: products,
		events:   events,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
		closing:  make(map[string]chan struct{}),
	}
	if cfg.Registerer != nil {
		s.storeMetrics = store.NewMetrics(cfg.Registerer)
		s.active = promauto.With(cfg.Registerer).NewGauge(prometheus.GaugeOpts{
			Name: "wishlist_active_sessions",
			Help: "Number of wishlist sessions held in memory",
		})
	}
	return s
}

// GetWishlist returns the session's wishlist.
func (s *WishlistService) GetWishlist(ctx context.Context, sessionID string) (domain.State, error) {
	sess, release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return domain.State{}, err
	}
	defer release()

	return sess.store.State(), nil
}

// IsInWishlist reports whether productID is in the session's wishlist.
func (s *WishlistService) IsInWishlist(ctx context.Context, sessionID, productID string) (bool, error) {
	sess, release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return false, err
	}
	defer release()

	return sess.store.IsInWishlist(productID), nil
}

// AddItem adds an item to the session's wishlist. added is false when the
// product was already saved; the existing entry is left untouched.
func (s *WishlistService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (added bool, state domain.State, err error) {
	if err := validator.Validate(input); err != nil {
		return false, domain.State{}, err
	}

	sess, release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return false, domain.State{}, err
	}

	item, err := s.resolve(ctx, input)
	if err != nil {
		release()
		return false, domain.State{}, err
	}

	added = sess.store.AddToWishlist(item)
	state = sess.store.State()
	release()

	if added {
		s.logger.InfoContext(ctx, "item added to wishlist",
			slog.String("session_id", sessionID),
			slog.String("product_id", item.ID),
		)
		s.publishUpdated(ctx, sessionID, string(domain.ToggleAdded), item.ID, state)
	}
	return added, state, nil
}

// RemoveItem removes a product from the session's wishlist. Removing a
// product that is not saved is not an error; removed reports false.
func (s *WishlistService) RemoveItem(ctx context.Context, sessionID, productID string) (removed bool, state domain.State, err error) {
	if productID == "" {
		return false, domain.State{}, apperrors.InvalidInput("product id is required")
	}

	sess, release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return false, domain.State{}, err
	}
	removed = sess.store.RemoveFromWishlist(productID)
	state = sess.store.State()
	release()

	if removed {
		s.logger.InfoContext(ctx, "item removed from wishlist",
			slog.String("session_id", sessionID),
			slog.String("product_id", productID),
		)
		s.publishUpdated(ctx, sessionID, string(domain.ToggleRemoved), productID, state)
	}
	return removed, state, nil
}

// Toggle removes the product when it is saved and adds it otherwise.
func (s *WishlistService) Toggle(ctx context.Context, sessionID string, input AddItemInput) (domain.ToggleResult, domain.State, error) {
	if err := validator.Validate(input); err != nil {
		return "", domain.State{}, err
	}

	sess, release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return "", domain.State{}, err
	}

	item, err := s.resolve(ctx, input)
	if err != nil {
		// A delisted product can still be toggled off.
		if !errors.Is(err, apperrors.ErrNotFound) || !sess.store.IsInWishlist(input.ID) {
			release()
			return "", domain.State{}, err
		}
		item = domain.ItemInput{ID: input.ID}
	}

	result := sess.store.ToggleWishlist(item)
	state := sess.store.State()
	release()

	s.logger.InfoContext(ctx, "wishlist toggled",
		slog.String("session_id", sessionID),
		slog.String("product_id", item.ID),
		slog.String("result", string(result)),
	)
	s.publishUpdated(ctx, sessionID, string(result), item.ID, state)
	return result, state, nil
}

// Clear empties the session's wishlist and returns how many items were
// removed.
func (s *WishlistService) Clear(ctx context.Context, sessionID string) (int, error) {
	sess, release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	removed := sess.store.ClearWishlist()
	release()

	if removed > 0 {
		s.logger.InfoContext(ctx, "wishlist cleared",
			slog.String("session_id", sessionID),
			slog.Int("removed", removed),
		)
		if err := s.events.PublishWishlistCleared(ctx, sessionID, removed); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish wishlist.cleared event",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}
	return removed, nil
}

// History returns the session's recent transitions, oldest first.
func (s *WishlistService) History(ctx context.Context, sessionID string) ([]store.Transition, error) {
	sess, release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	return sess.store.History(), nil
}

// ActiveSessions returns the number of sessions held in memory.
func (s *WishlistService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle flushes and drops every session unused for longer than idle.
// It returns the number of sessions evicted.
func (s *WishlistService) EvictIdle(ctx context.Context, idle time.Duration) int {
	cutoff := s.now().Add(-idle).UnixNano()

	s.mu.Lock()
	evicted := make(map[string]*session)
	for id, sess := range s.sessions {
		if sess.lastUsed.Load() < cutoff {
			evicted[id] = sess
			delete(s.sessions, id)
			s.closing[id] = make(chan struct{})
		}
	}
	s.setActive()
	s.mu.Unlock()

	for id, sess := range evicted {
		if err := sess.store.Close(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to flush evicted wishlist",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}

		s.mu.Lock()
		close(s.closing[id])
		delete(s.closing, id)
		s.mu.Unlock()
	}

	if len(evicted) > 0 {
		s.logger.InfoContext(ctx, "evicted idle wishlist sessions", slog.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Close flushes every session and rejects further operations.
func (s *WishlistService) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.setActive()
	s.mu.Unlock()

	var errs []error
	for id, sess := range sessions {
		if err := sess.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush wishlist %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// acquire returns the hydrated session for sessionID, creating it on first
// use. The caller must call release when done with the store.
func (s *WishlistService) acquire(ctx context.Context, sessionID string) (*session, func(), error) {
	if !validator.IsSessionID(sessionID) {
		return nil, nil, apperrors.InvalidInput("session id must be 1-128 letters, digits, '-' or '_'")
	}

	for {
		s.mu.RLock()
		if s.closed {
			s.mu.RUnlock()
			return nil, nil, ErrClosed
		}
		if sess, ok := s.sessions[sessionID]; ok {
			sess.lastUsed.Store(s.now().UnixNano())
			select {
			case <-sess.ready:
				return sess, s.mu.RUnlock, nil
			case <-ctx.Done():
				s.mu.RUnlock()
				return nil, nil, ctx.Err()
			}
		}
		s.mu.RUnlock()

		if err := s.open(ctx, sessionID); err != nil {
			return nil, nil, err
		}
	}
}

// open registers and hydrates a session unless one already exists. It waits
// for a previous incarnation of the session to finish flushing first so the
// new store hydrates the latest snapshot.
func (s *WishlistService) open(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.sessions[sessionID]; ok {
		s.mu.Unlock()
		return nil
	}
	if flushing, ok := s.closing[sessionID]; ok {
		s.mu.Unlock()
		select {
		case <-flushing:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	backend := repository.ForSession(s.repo, sessionID)
	l := s.logger.With(slog.String("session_id", sessionID))
	st := store.New(backend,
		store.WithLogger(l),
		store.WithMetrics(s.storeMetrics),
		store.WithHistoryLimit(s.cfg.HistoryLimit),
	)
	st.AttachPersister(store.NewPersister(backend, s.cfg.Persister, l, s.storeMetrics))

	sess := &session{store: st, ready: make(chan struct{})}
	sess.lastUsed.Store(s.now().UnixNano())
	s.sessions[sessionID] = sess
	s.setActive()
	s.mu.Unlock()

	// Hydration must not depend on the lifetime of the request that happened
	// to open the session.
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.hydrateTimeout())
	defer cancel()
	_ = st.Hydrate(hctx)
	close(sess.ready)

	s.logger.DebugContext(ctx, "wishlist session opened",
		slog.String("session_id", sessionID),
		slog.Int("item_count", st.ItemCount()),
	)
	return nil
}

// resolve turns client input into store input, filling the item from the
// catalog when only an ID was sent.
func (s *WishlistService) resolve(ctx context.Context, input AddItemInput) (domain.ItemInput, error) {
	if input.Name != "" {
		return domain.ItemInput{
			ID:          input.ID,
			Name:        input.Name,
			Price:       input.Price,
			Image:       input.Image,
			Category:    input.Category,
			Description: input.Description,
		}, nil
	}

	p, err := s.products.Get(ctx, input.ID)
	if err != nil {
		return domain.ItemInput{}, err
	}
	return p.ItemInput(), nil
}

func (s *WishlistService) publishUpdated(ctx context.Context, sessionID, action, productID string, state domain.State) {
	if err := s.events.PublishWishlistUpdated(ctx, sessionID, action, productID, state); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish wishlist.updated event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *WishlistService) hydrateTimeout() time.Duration {
	if s.cfg.Persister.Timeout > 0 {
		return s.cfg.Persister.Timeout
	}
	return store.DefaultPersisterConfig().Timeout
}

// setActive assumes s.mu is held for writing.
func (s *WishlistService) setActive() {
	if s.active != nil {
		s.active.Set(float64(len(s.sessions)))
	}
}
