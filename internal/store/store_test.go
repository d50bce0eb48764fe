package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/motoforge/storefront/internal/domain"
	apperrors "github.com/motoforge/storefront/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blobBackend keeps the encoded snapshot like a key-value store would.
type blobBackend struct {
	mu      sync.Mutex
	blob    []byte
	has     bool
	loadErr error
	saveErr error
	saves   [][]domain.WishlistItem
}

func (b *blobBackend) Load(_ context.Context) ([]domain.WishlistItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	if !b.has {
		return nil, apperrors.NotFound("wishlist", "test")
	}
	return domain.DecodeItems(b.blob)
}

func (b *blobBackend) Save(_ context.Context, items []domain.WishlistItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	data, err := domain.EncodeItems(items)
	if err != nil {
		return err
	}
	b.blob, b.has = data, true
	b.saves = append(b.saves, items)
	return nil
}

func (b *blobBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.saves)
}

func (b *blobBackend) lastSave() []domain.WishlistItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.saves) == 0 {
		return nil
	}
	return b.saves[len(b.saves)-1]
}

var fixedNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, backend Backend, opts ...Option) *Store {
	t.Helper()
	clock := fixedNow
	opts = append([]Option{WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})}, opts...)
	s := New(backend, opts...)
	require.NoError(t, s.Hydrate(context.Background()))
	return s
}

func helmet() domain.ItemInput {
	return domain.ItemInput{ID: "1", Name: "Helmet", Price: 449.99, Image: "/i.jpg", Category: "gear"}
}

func item(id string) domain.ItemInput {
	return domain.ItemInput{ID: id, Name: "Product " + id, Price: 10, Category: "gear"}
}

// ============================================================================
// Properties
// ============================================================================

func TestAdd_MembershipAndCount(t *testing.T) {
	s := newTestStore(t, nil)

	assert.True(t, s.AddToWishlist(item("a")))
	assert.True(t, s.IsInWishlist("a"))
	assert.Equal(t, 1, s.ItemCount())

	assert.True(t, s.AddToWishlist(item("b")))
	assert.Equal(t, 2, s.ItemCount())
}

func TestAdd_DuplicateIsNoOpAndKeepsAddedAt(t *testing.T) {
	s := newTestStore(t, nil)

	require.True(t, s.AddToWishlist(item("a")))
	first := s.Items()[0].AddedAt

	changed := item("a")
	changed.Name = "Renamed"
	assert.False(t, s.AddToWishlist(changed))
	assert.Equal(t, 1, s.ItemCount())
	assert.Equal(t, first, s.Items()[0].AddedAt)
	assert.Equal(t, "Product a", s.Items()[0].Name)
}

func TestAdd_EmptyIDIgnored(t *testing.T) {
	s := newTestStore(t, nil)
	assert.False(t, s.AddToWishlist(domain.ItemInput{Name: "nameless"}))
	assert.Zero(t, s.ItemCount())
}

func TestToggle_EmptyIDIgnored(t *testing.T) {
	s := newTestStore(t, nil)

	assert.Equal(t, domain.ToggleIgnored, s.ToggleWishlist(domain.ItemInput{Name: "nameless"}))
	assert.False(t, s.IsInWishlist(""))
	assert.Zero(t, s.ItemCount())
}

func TestRemove_Idempotent(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddToWishlist(item("a"))

	assert.True(t, s.RemoveFromWishlist("a"))
	assert.False(t, s.IsInWishlist("a"))

	assert.False(t, s.RemoveFromWishlist("a"))
	assert.False(t, s.RemoveFromWishlist("never-added"))
	assert.False(t, s.IsInWishlist("never-added"))
	assert.Zero(t, s.ItemCount())
}

func TestToggle_TwiceRestoresCount(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddToWishlist(item("x"))
	before := s.ItemCount()

	assert.Equal(t, domain.ToggleAdded, s.ToggleWishlist(item("a")))
	assert.Equal(t, domain.ToggleRemoved, s.ToggleWishlist(item("a")))
	assert.Equal(t, before, s.ItemCount())
}

func TestClear_Idempotent(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddToWishlist(item("a"))
	s.AddToWishlist(item("b"))

	assert.Equal(t, 2, s.ClearWishlist())
	assert.Zero(t, s.ItemCount())
	assert.Equal(t, 0, s.ClearWishlist())
	assert.Zero(t, s.ItemCount())
}

func TestItems_InsertionOrderAndCopy(t *testing.T) {
	s := newTestStore(t, nil)
	for _, id := range []string{"c", "a", "b"} {
		s.AddToWishlist(item(id))
	}
	s.RemoveFromWishlist("a")
	s.AddToWishlist(item("a"))

	items := s.Items()
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)

	items[0].Name = "mutated"
	assert.Equal(t, "Product c", s.Items()[0].Name)

	st := s.State()
	assert.Equal(t, len(st.Items), st.ItemCount)
}

func TestAddedAt_SetByStoreClock(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddToWishlist(item("a"))
	got := s.Items()[0].AddedAt
	assert.True(t, got.After(fixedNow))
	assert.Equal(t, time.UTC, got.Location())
}

// ============================================================================
// Scenarios
// ============================================================================

func TestScenario_AddThenToggleRemoves(t *testing.T) {
	s := newTestStore(t, nil)

	s.AddToWishlist(helmet())
	assert.Equal(t, 1, s.ItemCount())
	assert.True(t, s.IsInWishlist("1"))

	assert.Equal(t, domain.ToggleRemoved, s.ToggleWishlist(helmet()))
	assert.Equal(t, 0, s.ItemCount())
}

func TestScenario_HydrateFromCorruptBlob(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	backend := &blobBackend{blob: []byte("{not valid"), has: true}

	s := New(backend, WithMetrics(m))
	require.NotPanics(t, func() {
		assert.NoError(t, s.Hydrate(context.Background()))
	})

	assert.Empty(t, s.Items())
	assert.NotNil(t, s.Items())
	assert.Zero(t, s.ItemCount())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.hydrationFailures.WithLabelValues("corrupt")))
}

// ============================================================================
// Hydration
// ============================================================================

func TestHydrate_RestoresPersistedState(t *testing.T) {
	backend := &blobBackend{}
	first := newTestStore(t, backend)
	first.AddToWishlist(helmet())
	first.AddToWishlist(item("2"))
	require.NoError(t, backend.Save(context.Background(), first.Items()))

	second := newTestStore(t, backend)
	assert.Equal(t, first.Items(), second.Items())
	assert.Equal(t, 2, second.ItemCount())

	history := second.History()
	require.Len(t, history, 1)
	assert.Equal(t, ActionHydrate, history[0].Action)
}

func TestHydrate_MissingAndUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		backend *blobBackend
	}{
		{"missing", &blobBackend{}},
		{"unavailable", &blobBackend{loadErr: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.backend)
			assert.NoError(t, s.Hydrate(context.Background()))
			assert.Zero(t, s.ItemCount())
		})
	}
}

func TestHydrate_OnlyOnce(t *testing.T) {
	backend := &blobBackend{}
	require.NoError(t, backend.Save(context.Background(), []domain.WishlistItem{domain.NewItem(item("a"), fixedNow)}))

	s := New(backend)
	require.NoError(t, s.Hydrate(context.Background()))
	s.RemoveFromWishlist("a")

	require.NoError(t, s.Hydrate(context.Background()))
	assert.False(t, s.IsInWishlist("a"))
}

func TestHydrate_SkippedAfterMutation(t *testing.T) {
	backend := &blobBackend{}
	require.NoError(t, backend.Save(context.Background(), []domain.WishlistItem{domain.NewItem(item("old"), fixedNow)}))

	s := New(backend)
	s.AddToWishlist(item("new"))
	require.NoError(t, s.Hydrate(context.Background()))

	assert.False(t, s.IsInWishlist("old"))
	assert.True(t, s.IsInWishlist("new"))
}

// ============================================================================
// Subscribers & history
// ============================================================================

func TestSubscribe_NotifiedInOrder(t *testing.T) {
	s := newTestStore(t, nil)

	var got []Change
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c) })

	s.AddToWishlist(item("a"))
	s.AddToWishlist(item("a")) // no-op, not notified
	s.ToggleWishlist(item("b"))
	s.RemoveFromWishlist("a")
	s.ClearWishlist()

	require.Len(t, got, 4)
	assert.Equal(t, []ActionType{ActionAdd, ActionAdd, ActionRemove, ActionClear},
		[]ActionType{got[0].Action, got[1].Action, got[2].Action, got[3].Action})
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1].Seq+1, got[i].Seq)
	}
	assert.Equal(t, 0, got[3].State.ItemCount)

	unsubscribe()
	s.AddToWishlist(item("c"))
	assert.Len(t, got, 4)
}

func TestSubscribe_StateIsPrivateCopy(t *testing.T) {
	s := newTestStore(t, nil)

	var snap domain.State
	s.Subscribe(func(c Change) { snap = c.State })
	s.AddToWishlist(item("a"))

	snap.Items[0].Name = "mutated"
	assert.Equal(t, "Product a", s.Items()[0].Name)
}

func TestHistory_Bounded(t *testing.T) {
	s := newTestStore(t, nil, WithHistoryLimit(3))

	for _, id := range []string{"a", "b", "c", "d"} {
		s.AddToWishlist(item(id))
	}
	s.RemoveFromWishlist("a")

	h := s.History()
	require.Len(t, h, 3)
	assert.Equal(t, "c", h[0].ItemID)
	assert.Equal(t, ActionRemove, h[2].Action)
	assert.Equal(t, 3, h[2].ItemCount)
	assert.Equal(t, uint64(5), h[2].Seq)
}

func TestMetrics_CountTransitions(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	s := newTestStore(t, nil, WithMetrics(m))

	s.ToggleWishlist(item("a"))
	s.ToggleWishlist(item("a"))
	s.ClearWishlist()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("add")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("remove")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.transitions.WithLabelValues("clear")))
}

// ============================================================================
// Concurrency
// ============================================================================

func TestToggle_ConcurrentTogglesStayConsistent(t *testing.T) {
	s := newTestStore(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ToggleWishlist(item("a"))
		}()
	}
	wg.Wait()

	// An even number of toggles always ends where it started.
	assert.False(t, s.IsInWishlist("a"))
	assert.Len(t, s.History(), 100)
}

func TestClose_DetachesSubscribers(t *testing.T) {
	s := newTestStore(t, nil)
	calls := 0
	s.Subscribe(func(Change) { calls++ })

	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))

	s.AddToWishlist(item("a"))
	assert.Zero(t, calls)
	assert.True(t, s.IsInWishlist("a"))
}
