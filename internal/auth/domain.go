package auth

// User is a platform user account.
type User struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name"`
	Avatar      *string `json:"avatar"`
	// PasswordHash is the signing key for every token the user's devices hold;
	// it never leaves the server.
	PasswordHash string `json:"-"`
	Flags        int64  `json:"flags"`
	Bot          bool   `json:"bot"`
	System       bool   `json:"system"`
}

// Device is one authenticated client instance bound to a user. A device row is
// created at registration and at every login; deleting it severs the tokens
// that name it.
type Device struct {
	ID     int64
	UserID int64
}

// User flag bits.
const (
	FlagStaff          int64 = 1 << 0
	FlagAdmin          int64 = 1 << 1
	FlagVerified       int64 = 1 << 2
	FlagEarlySupporter int64 = 1 << 3
)

// DefaultUserFlags is the flag set stamped onto new accounts.
const DefaultUserFlags = FlagEarlySupporter
