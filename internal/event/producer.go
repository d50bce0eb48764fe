// Package event publishes wishlist domain events.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/motoforge/storefront/internal/domain"
	pkgkafka "github.com/motoforge/storefront/pkg/kafka"
	"github.com/motoforge/storefront/pkg/logger"
)

// Kafka topics for wishlist domain events.
var (
	TopicWishlistUpdated = pkgkafka.Topic("wishlist", "updated")
	TopicWishlistCleared = pkgkafka.Topic("wishlist", "cleared")
)

// AggregateTypeWishlist is the aggregate type of every wishlist event.
const AggregateTypeWishlist = "wishlist"

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// WishlistUpdatedData is the payload of a wishlist.updated event.
type WishlistUpdatedData struct {
	SessionID string   `json:"session_id"`
	Action    string   `json:"action"`
	ProductID string   `json:"product_id"`
	ItemIDs   []string `json:"item_ids"`
	ItemCount int      `json:"item_count"`
}

// WishlistClearedData is the payload of a wishlist.cleared event.
type WishlistClearedData struct {
	SessionID string `json:"session_id"`
	Removed   int    `json:"removed"`
}

// Publisher sends an envelope to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes wishlist domain events.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates a wishlist event producer. A nil pub discards every
// event, which is how the service runs with Kafka disabled.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	return &Producer{pub: pub, logger: logger}
}

// PublishWishlistUpdated publishes a wishlist.updated event. action is
// "added" or "removed".
func (p *Producer) PublishWishlistUpdated(ctx context.Context, sessionID, action, productID string, state domain.State) error {
	ids := make([]string, len(state.Items))
	for i, item := range state.Items {
		ids[i] = item.ID
	}

	data := WishlistUpdatedData{
		SessionID: sessionID,
		Action:    action,
		ProductID: productID,
		ItemIDs:   ids,
		ItemCount: state.ItemCount,
	}
	if err := p.publish(ctx, TopicWishlistUpdated, sessionID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published wishlist.updated event",
		slog.String("session_id", sessionID),
		slog.String("action", action),
		slog.Int("item_count", state.ItemCount),
	)
	return nil
}

// PublishWishlistCleared publishes a wishlist.cleared event.
func (p *Producer) PublishWishlistCleared(ctx context.Context, sessionID string, removed int) error {
	data := WishlistClearedData{SessionID: sessionID, Removed: removed}
	if err := p.publish(ctx, TopicWishlistCleared, sessionID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published wishlist.cleared event",
		slog.String("session_id", sessionID),
		slog.Int("removed", removed),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, sessionID string, data any) error {
	if p.pub == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, sessionID, AggregateTypeWishlist, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.pub.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
