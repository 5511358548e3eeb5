package gateway_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/gateway"
	_ "github.com/parley-chat/parley/testing"
)

func newPublisher(t *testing.T, enabled bool) (*gateway.Publisher, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return gateway.NewPublisher(slog.New(slog.DiscardHandler), client, enabled), client
}

func TestPublishGuildEnvelope(t *testing.T) {
	pub, client := newPublisher(t, true)
	ctx := context.Background()

	sub := client.Subscribe(ctx, gateway.ChannelName("guild", 42))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub.PublishGuild(ctx, 42, gateway.EventGuildUpdate, map[string]any{"name": "renamed"})

	select {
	case msg := <-sub.Channel():
		var env gateway.Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, gateway.EventGuildUpdate, env.Type)
		assert.NotEmpty(t, env.EventID)
		assert.JSONEq(t, `{"name":"renamed"}`, string(env.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestPublishDisabledIsNoOp(t *testing.T) {
	pub, client := newPublisher(t, false)
	ctx := context.Background()

	sub := client.Subscribe(ctx, gateway.ChannelName("user", 7))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub.PublishUser(ctx, 7, gateway.EventUserUpdate, map[string]any{})

	select {
	case msg := <-sub.Channel():
		t.Fatalf("unexpected message: %s", msg.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}
