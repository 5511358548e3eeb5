// Package relationships implements friend requests, friendships and blocks
// between users.
package relationships

import (
	"context"
	"log/slog"

	"github.com/parley-chat/parley/internal/gateway"
	"github.com/parley-chat/parley/internal/shared"
)

// Service owns relationship operations.
type Service struct {
	logger *slog.Logger
	repo   Repository
	events *gateway.Publisher
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, events *gateway.Publisher) *Service {
	return &Service{logger: logger, repo: repo, events: events}
}

// List returns the caller's outgoing edges.
func (s *Service) List(ctx context.Context, userID int64) ([]Relationship, error) {
	return s.repo.List(ctx, userID)
}

// Set writes the caller's relationship toward a target user.
//
// A friend request against an existing reverse request auto-accepts; accepting
// explicitly (TypeFriend) requires a pending request from the target. Blocking
// always succeeds against an existing user and severs the target's edge back.
func (s *Service) Set(ctx context.Context, userID, targetID int64, relType int16) (*Relationship, error) {
	if userID == targetID {
		return nil, shared.ErrInvalidRelationshipType
	}
	exists, err := s.repo.UserExists(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrUserNotFound
	}

	reverse, err := s.repo.Get(ctx, targetID, userID)
	if err != nil {
		return nil, err
	}
	rel := Relationship{OriginID: userID, TargetID: targetID, Type: relType}

	switch relType {
	case TypeBlocked:
		if reverse != nil && reverse.Type == TypeBlocked {
			// Mutual block: the target's own block must survive.
			if err := s.repo.Upsert(ctx, rel); err != nil {
				return nil, err
			}
			break
		}
		if err := s.repo.BlockReplace(ctx, rel); err != nil {
			return nil, err
		}

	case TypeFriendRequest:
		if reverse != nil && reverse.Type == TypeBlocked {
			return nil, shared.ErrBlocked
		}
		if reverse != nil && reverse.Type == TypeFriendRequest {
			rel.Type = TypeFriend
			accepted := Relationship{OriginID: targetID, TargetID: userID, Type: TypeFriend}
			if err := s.repo.UpsertPair(ctx, rel, accepted); err != nil {
				return nil, err
			}
			break
		}
		if err := s.repo.Upsert(ctx, rel); err != nil {
			return nil, err
		}

	case TypeFriend:
		if reverse != nil && reverse.Type == TypeBlocked {
			return nil, shared.ErrBlocked
		}
		if reverse == nil || reverse.Type != TypeFriendRequest {
			return nil, shared.ErrInvalidRelationshipType
		}
		accepted := Relationship{OriginID: targetID, TargetID: userID, Type: TypeFriend}
		if err := s.repo.UpsertPair(ctx, rel, accepted); err != nil {
			return nil, err
		}

	default:
		return nil, shared.ErrInvalidRelationshipType
	}

	s.events.PublishUser(ctx, targetID, gateway.EventRelationshipUpdate, rel)
	return &rel, nil
}

// Delete removes the caller's relationship toward the target: unfriend, cancel
// a pending request, or unblock. The reverse edge goes too, unless it is a
// block; a block placed on the caller is not theirs to clear.
func (s *Service) Delete(ctx context.Context, userID, targetID int64) error {
	reverse, err := s.repo.Get(ctx, targetID, userID)
	if err != nil {
		return err
	}
	if reverse != nil && reverse.Type == TypeBlocked {
		if err := s.repo.Delete(ctx, userID, targetID); err != nil {
			return err
		}
	} else if err := s.repo.DeletePair(ctx, userID, targetID); err != nil {
		return err
	}
	s.events.PublishUser(ctx, targetID, gateway.EventRelationshipDelete,
		map[string]int64{"user_id": userID})
	return nil
}
