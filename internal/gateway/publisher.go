// Package gateway fans change events out to the gateway process over Redis
// pub/sub. The API core only produces events; delivery to connected clients
// is entirely the gateway's problem.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Envelope is the wire format published to the gateway.
type Envelope struct {
	EventID string          `json:"event_id"`
	Type    string          `json:"t"`
	Data    json.RawMessage `json:"d"`
}

// Publisher publishes change events after permission-gated writes succeed.
// Publish failures are logged, never surfaced: the write already committed
// and the request must not fail because fan-out is degraded.
type Publisher struct {
	logger  *slog.Logger
	client  *redis.Client
	enabled bool
}

// NewPublisher constructs a Publisher. With enabled=false every publish is a
// no-op, which is the dev and test default.
func NewPublisher(logger *slog.Logger, client *redis.Client, enabled bool) *Publisher {
	return &Publisher{logger: logger, client: client, enabled: enabled}
}

// PublishGuild fans an event out to every session subscribed to a guild.
func (p *Publisher) PublishGuild(ctx context.Context, guildID int64, eventType string, payload any) {
	p.publish(ctx, "gateway:guild:"+strconv.FormatInt(guildID, 10), eventType, payload)
}

// PublishUser fans an event out to a single user's sessions.
func (p *Publisher) PublishUser(ctx context.Context, userID int64, eventType string, payload any) {
	p.publish(ctx, "gateway:user:"+strconv.FormatInt(userID, 10), eventType, payload)
}

func (p *Publisher) publish(ctx context.Context, channel, eventType string, payload any) {
	if !p.enabled {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("gateway: marshal payload", slog.String("type", eventType), slog.Any("error", err))
		return
	}
	body, err := json.Marshal(Envelope{
		EventID: uuid.NewString(),
		Type:    eventType,
		Data:    data,
	})
	if err != nil {
		p.logger.Error("gateway: marshal envelope", slog.String("type", eventType), slog.Any("error", err))
		return
	}
	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		p.logger.Error("gateway: publish",
			slog.String("channel", channel),
			slog.String("type", eventType),
			slog.Any("error", err))
	}
}

// Event type names, shared with the gateway process.
const (
	EventGuildUpdate   = "GUILD_UPDATE"
	EventGuildDelete   = "GUILD_DELETE"
	EventChannelCreate = "CHANNEL_CREATE"
	EventChannelUpdate = "CHANNEL_UPDATE"
	EventChannelDelete = "CHANNEL_DELETE"
	EventRoleCreate    = "ROLE_CREATE"
	EventRoleUpdate    = "ROLE_UPDATE"
	EventRoleDelete    = "ROLE_DELETE"
	EventMemberJoin    = "MEMBER_JOIN"
	EventMemberUpdate  = "MEMBER_UPDATE"
	EventUserUpdate    = "USER_UPDATE"

	EventRelationshipUpdate = "RELATIONSHIP_UPDATE"
	EventRelationshipDelete = "RELATIONSHIP_DELETE"
)

// ChannelName formats a pub/sub channel name; exported for the gateway
// process and tests.
func ChannelName(kind string, id int64) string {
	return fmt.Sprintf("gateway:%s:%d", kind, id)
}
