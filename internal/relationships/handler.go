package relationships

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/guilds"
	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/shared"
)

// Handler wires the relationship endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the relationship routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users/@me/relationships", h.handleList)
	r.Put("/users/{user_id}/relationship", h.handleSet)
	r.Delete("/users/{user_id}/relationship", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	out, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type setRelationshipBody struct {
	// Type is a pointer so an explicit null clears the relationship.
	Type *int16 `json:"type"`
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	targetID, err := guilds.URLParamInt64(r, "user_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrUserNotFound)
		return
	}

	var body setRelationshipBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	if body.Type == nil {
		if err := h.service.Delete(r.Context(), user.ID, targetID); err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.NoContent(w)
		return
	}

	rel, err := h.service.Set(r.Context(), user.ID, targetID, *body.Type)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rel)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	targetID, err := guilds.URLParamInt64(r, "user_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrUserNotFound)
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, targetID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
