package guilds

import "time"

// Guild is a community a set of members belongs to.
type Guild struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Icon    *string `json:"icon"`
	OwnerID int64   `json:"owner_id"`
	Type    string  `json:"type"`
	// MaxMembers caps membership; enforced at join time.
	MaxMembers int32 `json:"max_members"`
	// Permissions is the base "@everyone" bitmask.
	Permissions int64 `json:"permissions"`
}

// Role is a named permission overlay members can be assigned.
type Role struct {
	ID      int64  `json:"id"`
	GuildID int64  `json:"guild_id"`
	Name    string `json:"name"`
	// Allow grants bits; Deny is the retention mask applied after Allow.
	Allow       int64 `json:"allow"`
	Deny        int64 `json:"deny"`
	Position    int32 `json:"position"`
	Hoist       bool  `json:"hoist"`
	Mentionable bool  `json:"mentionable"`
}

// Member is a user's membership in one guild.
type Member struct {
	UserID   int64     `json:"user_id"`
	GuildID  int64     `json:"guild_id"`
	Nick     *string   `json:"nick"`
	JoinedAt time.Time `json:"joined_at"`
	Deaf     bool      `json:"deaf"`
	Mute     bool      `json:"mute"`
}
