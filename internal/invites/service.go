// Package invites implements invite creation and guild joining.
package invites

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/parley-chat/parley/internal/gateway"
	"github.com/parley-chat/parley/internal/guilds"
	"github.com/parley-chat/parley/internal/permissions"
	"github.com/parley-chat/parley/internal/shared"
)

// Service owns invite operations.
type Service struct {
	logger *slog.Logger
	repo   Repository
	events *gateway.Publisher
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, events *gateway.Publisher) *Service {
	return &Service{logger: logger, repo: repo, events: events}
}

// Create mints an invite pointing at a channel. Gated on CREATE_INVITES at
// channel scope, so an overwrite can stop invites for one channel without
// touching guild-level grants.
func (s *Service) Create(ctx context.Context, userID, guildID, channelID int64) (*Invite, error) {
	guild, member, err := s.repo.Membership(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	guildPerms, err := s.repo.MemberPermissions(ctx, guild, member)
	if err != nil {
		return nil, err
	}
	perms, err := s.repo.ChannelPermissions(ctx, guild, channelID, member, guildPerms)
	if err != nil {
		return nil, err
	}
	if !perms.Contains(permissions.CreateInvites) {
		return nil, shared.ErrInvalidPermissions
	}

	invite := Invite{
		ID:        NewID(),
		GuildID:   guildID,
		ChannelID: channelID,
		AuthorID:  userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateInvite(ctx, invite); err != nil {
		return nil, err
	}
	return &invite, nil
}

// Get returns an invite to any authenticated user, so a client can preview
// the guild before joining.
func (s *Service) Get(ctx context.Context, id string) (*Invite, error) {
	return s.repo.InviteByID(ctx, id)
}

// Delete removes an invite. The author can always revoke their own; anyone
// else needs MANAGE_INVITES in the target guild.
func (s *Service) Delete(ctx context.Context, userID int64, id string) error {
	invite, err := s.repo.InviteByID(ctx, id)
	if err != nil {
		return err
	}
	if invite.AuthorID != userID {
		guild, member, err := s.repo.Membership(ctx, invite.GuildID, userID)
		if err != nil {
			return err
		}
		perms, err := s.repo.MemberPermissions(ctx, guild, member)
		if err != nil {
			return err
		}
		if !perms.Contains(permissions.ManageInvites) {
			return shared.ErrInvalidPermissions
		}
	}
	return s.repo.DeleteInvite(ctx, id)
}

// Join redeems an invite, adding the caller to its guild.
func (s *Service) Join(ctx context.Context, userID int64, id string) (*guilds.Guild, error) {
	invite, err := s.repo.InviteByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.repo.Membership(ctx, invite.GuildID, userID); err == nil {
		return nil, shared.ErrAlreadyAGuildMember
	} else if !errors.Is(err, shared.ErrNotAGuildMember) {
		return nil, err
	}

	if err := s.repo.JoinGuild(ctx, invite.GuildID, userID); err != nil {
		return nil, err
	}
	guild, err := s.repo.GuildByID(ctx, invite.GuildID)
	if err != nil {
		return nil, err
	}
	s.events.PublishGuild(ctx, invite.GuildID, gateway.EventMemberJoin,
		map[string]int64{"user_id": userID, "guild_id": invite.GuildID})
	return guild, nil
}
