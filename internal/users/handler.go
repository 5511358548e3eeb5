package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/guilds"
	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/shared"
)

// Handler wires the user profile endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the user routes. "@me" must register before the
// parameterized route so chi does not treat it as a user id.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users/@me", h.handleGetSelf)
	r.Patch("/users/@me", h.handleModifySelf)
	r.Get("/users/{user_id}", h.handleGet)
}

func (h *Handler) handleGetSelf(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, user)
}

type modifySelfBody struct {
	Username    *string `json:"username" validate:"omitempty,min=1,max=32"`
	Password    *string `json:"password" validate:"omitempty,min=1,max=72"`
	OldPassword *string `json:"old_password" validate:"omitempty,max=72"`
}

func (h *Handler) handleModifySelf(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var body modifySelfBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	updated, err := h.service.ModifySelf(r.Context(), user.ID, ProfilePatch{
		Username:    body.Username,
		Password:    body.Password,
		OldPassword: body.OldPassword,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := guilds.URLParamInt64(r, "user_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrUserNotFound)
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
