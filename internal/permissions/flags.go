// Package permissions computes a member's effective permission bitmask at
// guild scope and, layered on top, at channel scope.
package permissions

import "github.com/parley-chat/parley/internal/shared"

// Permissions is a validated permission bitmask.
type Permissions int64

const (
	Administrator Permissions = 1 << 0

	// management
	ManageChannels       Permissions = 1 << 1
	ManageRoles          Permissions = 1 << 2
	ManageInvites        Permissions = 1 << 3
	ManageChannelHistory Permissions = 1 << 4
	ManageGuild          Permissions = 1 << 5

	// moderation
	HandleBans  Permissions = 1 << 6
	HandleKicks Permissions = 1 << 7

	// viewing
	ViewChannels       Permissions = 1 << 8
	ViewChannelHistory Permissions = 1 << 9

	// creations
	CreateInvites  Permissions = 1 << 10
	CreateMessages Permissions = 1 << 11
)

// All is the full permission set, granted to guild owners and administrators.
const All = CreateMessages<<1 - 1

// DefaultEveryone is the base permission set given to new guilds.
const DefaultEveryone = ViewChannels | ViewChannelHistory | CreateInvites | CreateMessages

// FromBits validates a raw bitmask against the known flag set. A mask with
// unknown bits yields ErrInvalidPermissionBitSet; callers dealing with stored
// masks must treat that as data corruption, never as an empty set.
func FromBits(bits int64) (Permissions, error) {
	if bits&^int64(All) != 0 {
		return 0, shared.ErrInvalidPermissionBitSet
	}
	return Permissions(bits), nil
}

// Contains reports whether every bit of flag is present in p.
func (p Permissions) Contains(flag Permissions) bool {
	return p&flag == flag
}

// Bits returns the raw bitmask.
func (p Permissions) Bits() int64 {
	return int64(p)
}
