package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devops-golf-s17/wishlists/internal/domain"
	pkgkafka "github.com/devops-golf-s17/wishlists/pkg/kafka"
	"github.com/devops-golf-s17/wishlists/pkg/logger"
)

type recordingPublisher struct {
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	r.events = append(r.events, e)
	return nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestTopics(t *testing.T) {
	assert.Equal(t, "wishlists.wishlist.created", TopicWishlistCreated)
	assert.Equal(t, "wishlists.wishlist.updated", TopicWishlistUpdated)
	assert.Equal(t, "wishlists.wishlist.deleted", TopicWishlistDeleted)
	assert.Equal(t, "wishlists.item.added", TopicItemAdded)
	assert.Equal(t, "wishlists.item.updated", TopicItemUpdated)
	assert.Equal(t, "wishlists.item.removed", TopicItemRemoved)
	assert.Equal(t, "wishlists.items.cleared", TopicItemsCleared)
}

func TestProducer_PublishWishlistCreated(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewProducer(rec, quietLogger())

	w := domain.NewWishlist("wl1", "u1", time.Now())
	w.ID = 12
	_, _ = w.AddItem("item1", "test item 1")

	ctx := logger.WithCorrelationID(context.Background(), "corr-9")
	ctx = logger.WithUserID(ctx, "u1")
	require.NoError(t, p.PublishWishlistCreated(ctx, w))

	require.Len(t, rec.events, 1)
	evt := rec.events[0]
	assert.Equal(t, TopicWishlistCreated, rec.topics[0])
	assert.Equal(t, TopicWishlistCreated, evt.EventType)
	assert.Equal(t, "12", evt.AggregateID)
	assert.Equal(t, AggregateTypeWishlist, evt.AggregateType)
	assert.Equal(t, SourceWishlistService, evt.Source)
	assert.Equal(t, "corr-9", evt.CorrelationID)
	assert.Equal(t, "u1", evt.Metadata["user_id"])

	var data WishlistData
	require.NoError(t, json.Unmarshal(evt.Data, &data))
	assert.Equal(t, WishlistData{WishlistID: 12, UserID: "u1", Name: "wl1", ItemCount: 1}, data)
}

func TestProducer_ItemEvents(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewProducer(rec, quietLogger())
	ctx := context.Background()

	require.NoError(t, p.PublishItemAdded(ctx, 3, domain.Item{ID: "a", Description: "d"}))
	require.NoError(t, p.PublishItemUpdated(ctx, 3, domain.Item{ID: "a", Description: "d2"}))
	require.NoError(t, p.PublishItemRemoved(ctx, 3, "a"))
	require.NoError(t, p.PublishItemsCleared(ctx, 3, 4))
	require.NoError(t, p.PublishWishlistDeleted(ctx, 3, false))

	assert.Equal(t, []string{TopicItemAdded, TopicItemUpdated, TopicItemRemoved, TopicItemsCleared, TopicWishlistDeleted}, rec.topics)

	var cleared ItemsClearedData
	require.NoError(t, json.Unmarshal(rec.events[3].Data, &cleared))
	assert.Equal(t, 4, cleared.Removed)
	assert.Empty(t, rec.events[0].CorrelationID)
}

func TestProducer_PublishError(t *testing.T) {
	p := NewProducer(&recordingPublisher{err: errors.New("broker down")}, quietLogger())

	err := p.PublishItemRemoved(context.Background(), 1, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicItemRemoved)
}

func TestDiscardProducer(t *testing.T) {
	p := NewDiscardProducer(quietLogger())
	assert.NoError(t, p.PublishWishlistDeleted(context.Background(), 1, true))
}
