package permissions

import "sort"

// Guild carries the guild fields resolution depends on.
type Guild struct {
	ID      int64
	OwnerID int64
	// Permissions is the base "@everyone" bitmask stored on the guild row.
	Permissions int64
}

// Member is the subject of permission resolution.
type Member struct {
	UserID  int64
	GuildID int64
}

// Role is a permission overlay assigned to members. Position defines
// evaluation order, ascending; later positions take effective precedence.
type Role struct {
	ID       int64
	Allow    int64
	Deny     int64
	Position int32
}

// Overwrite types distinguish role-keyed from member-keyed channel overwrites.
const (
	OverwriteRole   int32 = 0
	OverwriteMember int32 = 1
)

// Overwrite adjusts permissions for one channel, keyed by a role or user id.
type Overwrite struct {
	ID        int64
	ChannelID int64
	Type      int32
	Allow     int64
	Deny      int64
}

// apply folds one allow/deny pair into perms. Deny is a retention mask: bits
// kept are the ones set in it, so all-ones denies nothing. The
// (perms | allow) & deny order lets a single role grant and revoke bits in
// the same step; do not "simplify" it to perms &^ deny. Deny stays a raw
// int64 because a retention mask legitimately carries bits outside the flag
// set (~0 is the common "keep everything" value); since perms and allow are
// validated, no unknown bit can survive the AND.
func apply(perms, allow Permissions, deny int64) Permissions {
	return Permissions((int64(perms) | int64(allow)) & deny)
}

// ResolveGuild computes the member's effective guild-scope permissions from
// the guild base mask and the member's assigned roles. Owners and any
// configuration resolving to ADMINISTRATOR short-circuit to the full set.
func ResolveGuild(guild Guild, member Member, roles []Role) (Permissions, error) {
	if guild.OwnerID == member.UserID {
		return All, nil
	}

	perms, err := FromBits(guild.Permissions)
	if err != nil {
		return 0, err
	}

	ordered := make([]Role, len(roles))
	copy(ordered, roles)
	// Secondary key keeps ties on position deterministic; role ids are
	// snowflakes, so equal positions resolve in creation order.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position < ordered[j].Position
		}
		return ordered[i].ID < ordered[j].ID
	})

	for _, role := range ordered {
		allow, err := FromBits(role.Allow)
		if err != nil {
			return 0, err
		}
		perms = apply(perms, allow, role.Deny)
	}

	if perms.Contains(Administrator) {
		return All, nil
	}
	return perms, nil
}

// ResolveChannel layers channel overwrites over already-resolved guild
// permissions. Subjects are the member's roles plus a synthetic @everyone
// subject (the guild id) pinned at position 0; a member-keyed overwrite is
// applied last and overrides any role-derived result regardless of position.
// There is no owner or administrator short-circuit at this layer.
func ResolveChannel(guild Guild, channelID int64, member Member, guildPerms Permissions, roles []Role, overwrites []Overwrite) (Permissions, error) {
	byRole := make(map[int64]Overwrite, len(overwrites))
	var memberOverwrite *Overwrite
	for _, ow := range overwrites {
		if ow.ChannelID != channelID {
			continue
		}
		switch {
		case ow.Type == OverwriteMember && ow.ID == member.UserID:
			ow := ow
			memberOverwrite = &ow
		case ow.Type == OverwriteRole:
			byRole[ow.ID] = ow
		}
	}

	ordered := make([]Role, len(roles))
	copy(ordered, roles)
	// Same (position, id) order as guild scope, so tied positions stay
	// deterministic across fetches. @everyone is pinned ahead of every real
	// role, including ones sharing position 0.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position < ordered[j].Position
		}
		return ordered[i].ID < ordered[j].ID
	})

	subjects := make([]Role, 0, len(ordered)+1)
	subjects = append(subjects, Role{ID: guild.ID, Position: 0})
	subjects = append(subjects, ordered...)

	perms := guildPerms
	for _, subject := range subjects {
		ow, ok := byRole[subject.ID]
		if !ok {
			continue
		}
		allow, err := FromBits(ow.Allow)
		if err != nil {
			return 0, err
		}
		perms = apply(perms, allow, ow.Deny)
	}

	if memberOverwrite != nil {
		allow, err := FromBits(memberOverwrite.Allow)
		if err != nil {
			return 0, err
		}
		perms = apply(perms, allow, memberOverwrite.Deny)
	}
	return perms, nil
}
