package invalidation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hupe1980/proximity"
	"github.com/hupe1980/proximity/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestCache(t *testing.T) *proximity.Cache {
	t.Helper()
	backend := proximity.SearcherFunc(func(context.Context, model.Vector) (model.Result, error) {
		return model.Result{}, nil
	})
	c, err := proximity.New(2, backend)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	for _, xs := range [][]float32{{0, 0}, {0, 0.5}, {8, 8}} {
		_, err := c.Put(ctx, model.NewVector(xs), model.Result{}, 0.2)
		require.NoError(t, err)
	}
	return c
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, Message{Scope: ScopeAll}.Validate())
	assert.NoError(t, Message{Scope: ScopeRegion, Center: []float32{1}, Radius: 0}.Validate())
	assert.ErrorIs(t, Message{Scope: ScopeRegion}.Validate(), ErrInvalidMessage)
	assert.ErrorIs(t, Message{Scope: ScopeRegion, Center: []float32{1}, Radius: -1}.Validate(), ErrInvalidMessage)
	assert.ErrorIs(t, Message{Scope: "ids"}.Validate(), ErrInvalidMessage)
}

func TestPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t)
	cache := newTestCache(t)

	type applied struct {
		m       Message
		removed int
		err     error
	}
	done := make(chan applied, 4)

	sub := NewSubscriber(client, cache, func(o *SubscriberOptions) {
		o.Channel = "test"
		o.OnApplied = func(m Message, removed int, err error) { done <- applied{m, removed, err} }
	})
	require.NoError(t, sub.Start(ctx))
	defer sub.Close()

	pub := NewPublisher(client, "test")

	n, err := pub.Publish(ctx, Message{Scope: ScopeRegion, Center: []float32{0, 0}, Radius: 0.6})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	select {
	case a := <-done:
		require.NoError(t, a.err)
		assert.Equal(t, 2, a.removed)
		assert.Equal(t, ScopeRegion, a.m.Scope)
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation not applied")
	}
	assert.Equal(t, 1, cache.Len())

	// Dimension mismatch reaches the callback as an error.
	_, err = pub.Publish(ctx, Message{Scope: ScopeRegion, Center: []float32{1, 2, 3}, Radius: 1})
	require.NoError(t, err)
	select {
	case a := <-done:
		var dm *proximity.ErrDimensionMismatch
		assert.ErrorAs(t, a.err, &dm)
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation not applied")
	}

	_, err = pub.Publish(ctx, Message{Scope: ScopeAll})
	require.NoError(t, err)
	select {
	case a := <-done:
		require.NoError(t, a.err)
		assert.Equal(t, 1, a.removed)
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation not applied")
	}
	assert.Equal(t, 0, cache.Len())

	require.NoError(t, sub.Close())
}

func TestPublishRejectsInvalid(t *testing.T) {
	pub := NewPublisher(setupRedis(t), "")

	_, err := pub.Publish(context.Background(), Message{Scope: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestMalformedPayloadIsSkipped(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t)
	cache := newTestCache(t)

	done := make(chan int, 1)
	sub := NewSubscriber(client, cache, func(o *SubscriberOptions) {
		o.OnApplied = func(_ Message, removed int, _ error) { done <- removed }
	})
	require.NoError(t, sub.Start(ctx))
	defer sub.Close()

	require.NoError(t, client.Publish(ctx, DefaultChannel, "not json").Err())
	_, err := NewPublisher(client, "").Publish(ctx, Message{Scope: ScopeAll})
	require.NoError(t, err)

	select {
	case removed := <-done:
		assert.Equal(t, 3, removed)
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation not applied")
	}
}
