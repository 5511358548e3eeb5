package channels

// Channel types mirror the values stored in the type column.
const (
	TypeCategory int16 = 0
	TypeText     int16 = 1
)

// Channel is a guild channel. Categories carry no messages; text channels may
// nest under a category via ParentID.
type Channel struct {
	ID       int64  `json:"id"`
	GuildID  int64  `json:"guild_id"`
	Name     string `json:"name"`
	Type     int16  `json:"type"`
	ParentID *int64 `json:"parent_id"`
	Position int32  `json:"position"`
}
