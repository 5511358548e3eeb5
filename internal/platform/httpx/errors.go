package httpx

import (
	"errors"
	"net/http"

	"github.com/parley-chat/parley/internal/shared"
)

// RespondError maps a domain error to its HTTP status and coded JSON body.
// Anything that is not a *shared.Error is reported as the internal-failure
// kind without leaking detail.
func RespondError(w http.ResponseWriter, err error) {
	var appErr *shared.Error
	if !errors.As(err, &appErr) {
		appErr = shared.ErrInternal
	}
	JSON(w, statusFor(appErr), ErrorBody{Code: appErr.Code, Message: appErr.Message})
}

// BadRequest reports a malformed or invalid request body.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Code: shared.CodeBadRequest, Message: message})
}

func statusFor(err *shared.Error) int {
	switch err {
	case shared.ErrInvalidAuthorization, shared.ErrInvalidToken:
		return http.StatusUnauthorized
	case shared.ErrInvalidPermissions, shared.ErrBlocked, shared.ErrNotAGuildMember:
		return http.StatusForbidden
	case shared.ErrUserNotFound, shared.ErrChannelNotFound, shared.ErrInviteNotFound,
		shared.ErrGuildNotFound, shared.ErrTrackNotFound:
		return http.StatusNotFound
	case shared.ErrUsernameTaken, shared.ErrInvalidUsername, shared.ErrIncorrectPassword,
		shared.ErrAlreadyAGuildMember, shared.ErrInvalidRelationshipType,
		shared.ErrInvalidOverwriteType:
		return http.StatusBadRequest
	case shared.ErrInvalidPermissionBitSet:
		// Distinguishes stored-mask corruption from a plain bad request.
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
