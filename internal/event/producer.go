package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/devops-golf-s17/wishlists/internal/domain"
	pkgkafka "github.com/devops-golf-s17/wishlists/pkg/kafka"
	"github.com/devops-golf-s17/wishlists/pkg/logger"
)

// Kafka topics for wishlist domain events.
var (
	TopicWishlistCreated = pkgkafka.Topic("wishlist", "created")
	TopicWishlistUpdated = pkgkafka.Topic("wishlist", "updated")
	TopicWishlistDeleted = pkgkafka.Topic("wishlist", "deleted")
	TopicItemAdded       = pkgkafka.Topic("item", "added")
	TopicItemUpdated     = pkgkafka.Topic("item", "updated")
	TopicItemRemoved     = pkgkafka.Topic("item", "removed")
	TopicItemsCleared    = pkgkafka.Topic("items", "cleared")
)

// AggregateTypeWishlist is the aggregate type stamped on every event.
const AggregateTypeWishlist = "wishlist"

// SourceWishlistService identifies events originating from this service.
const SourceWishlistService = "wishlist-service"

// WishlistData is the payload for wishlist.created and wishlist.updated.
type WishlistData struct {
	WishlistID int64  `json:"wishlist_id"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Deleted    bool   `json:"deleted"`
	ItemCount  int    `json:"item_count"`
}

// WishlistDeletedData is the payload for wishlist.deleted.
type WishlistDeletedData struct {
	WishlistID int64 `json:"wishlist_id"`
	Hard       bool  `json:"hard"`
}

// ItemData is the payload for item.added and item.updated.
type ItemData struct {
	WishlistID  int64  `json:"wishlist_id"`
	ItemID      string `json:"item_id"`
	Description string `json:"description"`
}

// ItemRemovedData is the payload for item.removed.
type ItemRemovedData struct {
	WishlistID int64  `json:"wishlist_id"`
	ItemID     string `json:"item_id"`
}

// ItemsClearedData is the payload for items.cleared.
type ItemsClearedData struct {
	WishlistID int64 `json:"wishlist_id"`
	Removed    int   `json:"removed"`
}

// Publisher delivers an envelope to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// Producer publishes wishlist domain events.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the wishlist service.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	return &Producer{pub: pub, logger: logger}
}

// NewDiscardProducer returns a producer that drops every event. It is used
// when Kafka is disabled.
func NewDiscardProducer(logger *slog.Logger) *Producer {
	return NewProducer(discardPublisher{}, logger)
}

func wishlistData(w *domain.Wishlist) WishlistData {
	return WishlistData{
		WishlistID: w.ID,
		UserID:     w.UserID,
		Name:       w.Name,
		Deleted:    w.Deleted,
		ItemCount:  len(w.Items),
	}
}

// PublishWishlistCreated publishes a wishlist.created event.
func (p *Producer) PublishWishlistCreated(ctx context.Context, w *domain.Wishlist) error {
	return p.publish(ctx, TopicWishlistCreated, w.ID, wishlistData(w))
}

// PublishWishlistUpdated publishes a wishlist.updated event.
func (p *Producer) PublishWishlistUpdated(ctx context.Context, w *domain.Wishlist) error {
	return p.publish(ctx, TopicWishlistUpdated, w.ID, wishlistData(w))
}

// PublishWishlistDeleted publishes a wishlist.deleted event. hard is true when
// the record was erased rather than flagged.
func (p *Producer) PublishWishlistDeleted(ctx context.Context, wishlistID int64, hard bool) error {
	return p.publish(ctx, TopicWishlistDeleted, wishlistID, WishlistDeletedData{WishlistID: wishlistID, Hard: hard})
}

// PublishItemAdded publishes an item.added event.
func (p *Producer) PublishItemAdded(ctx context.Context, wishlistID int64, item domain.Item) error {
	return p.publish(ctx, TopicItemAdded, wishlistID, ItemData{
		WishlistID:  wishlistID,
		ItemID:      item.ID,
		Description: item.Description,
	})
}

// PublishItemUpdated publishes an item.updated event.
func (p *Producer) PublishItemUpdated(ctx context.Context, wishlistID int64, item domain.Item) error {
	return p.publish(ctx, TopicItemUpdated, wishlistID, ItemData{
		WishlistID:  wishlistID,
		ItemID:      item.ID,
		Description: item.Description,
	})
}

// PublishItemRemoved publishes an item.removed event.
func (p *Producer) PublishItemRemoved(ctx context.Context, wishlistID int64, itemID string) error {
	return p.publish(ctx, TopicItemRemoved, wishlistID, ItemRemovedData{WishlistID: wishlistID, ItemID: itemID})
}

// PublishItemsCleared publishes an items.cleared event.
func (p *Producer) PublishItemsCleared(ctx context.Context, wishlistID int64, removed int) error {
	return p.publish(ctx, TopicItemsCleared, wishlistID, ItemsClearedData{WishlistID: wishlistID, Removed: removed})
}

func (p *Producer) publish(ctx context.Context, topic string, wishlistID int64, data any) error {
	aggregateID := strconv.FormatInt(wishlistID, 10)

	evt, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeWishlist, SourceWishlistService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if userID := logger.UserIDFromContext(ctx); userID != "" {
		evt.WithMetadata("user_id", userID)
	}

	if err := p.pub.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published wishlist event",
		slog.String("topic", topic),
		slog.Int64("wishlist_id", wishlistID),
	)
	return nil
}
