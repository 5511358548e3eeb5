package relationships

// Relationship types. A friend request is stored as an outgoing row on the
// requester; acceptance upgrades both directions to friends.
const (
	TypeFriendRequest int16 = 0
	TypeFriend        int16 = 1
	TypeBlocked       int16 = 2
)

// Relationship is one directed edge between two users.
type Relationship struct {
	OriginID int64 `json:"origin_id"`
	TargetID int64 `json:"target_id"`
	Type     int16 `json:"type"`
}
