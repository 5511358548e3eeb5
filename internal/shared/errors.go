package shared

// Error is a platform error carrying the stable numeric code exposed to API
// clients. Codes are part of the public contract and must not be renumbered.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

// CodeBadRequest is the code attached to malformed request bodies; those are
// shaped per endpoint instead of having sentinels here.
const CodeBadRequest = 4000

var (
	// ErrInternal covers unexpected failures, including any store error that
	// leaks out of a repository. No store-specific detail crosses this boundary.
	ErrInternal = &Error{Code: 1000, Message: "internal server error"}

	// ErrInvalidAuthorization indicates a missing credential or one bound to a
	// device that no longer exists.
	ErrInvalidAuthorization = &Error{Code: 2000, Message: "invalid authorization"}
	// ErrInvalidToken indicates a malformed or signature-mismatched token.
	ErrInvalidToken      = &Error{Code: 2001, Message: "invalid user token"}
	ErrUsernameTaken     = &Error{Code: 2002, Message: "username already taken"}
	ErrInvalidUsername   = &Error{Code: 2003, Message: "invalid username"}
	ErrIncorrectPassword = &Error{Code: 2004, Message: "incorrect password"}
	// ErrInvalidPermissions indicates the resolved permission set lacks a bit
	// required for the attempted action.
	ErrInvalidPermissions = &Error{Code: 2005, Message: "invalid permissions"}
	ErrBlocked            = &Error{Code: 2006, Message: "you have been blocked by this user"}

	ErrUserNotFound    = &Error{Code: 3000, Message: "user does not exist"}
	ErrChannelNotFound = &Error{Code: 3001, Message: "channel does not exist"}
	ErrInviteNotFound  = &Error{Code: 3002, Message: "invite does not exist"}
	ErrGuildNotFound   = &Error{Code: 3003, Message: "guild does not exist"}
	ErrTrackNotFound   = &Error{Code: 3004, Message: "track does not exist"}

	// ErrInvalidPermissionBitSet indicates a bitmask, stored or supplied, that
	// does not decode to the known flag set. For stored masks this is data
	// corruption and must never degrade to an empty permission set.
	ErrInvalidPermissionBitSet = &Error{Code: 4003, Message: "invalid permission bit set"}
	ErrNotAGuildMember         = &Error{Code: 4004, Message: "not a member of this guild"}
	ErrAlreadyAGuildMember     = &Error{Code: 4005, Message: "already a member of this guild"}
	ErrInvalidRelationshipType = &Error{Code: 4006, Message: "invalid relationship type"}
	ErrInvalidOverwriteType    = &Error{Code: 4007, Message: "invalid permission overwrite type"}
)
