package invites

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/guilds"
	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/shared"
)

// Handler wires the invite endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the invite routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/guilds/{guild_id}/channels/{channel_id}/invites", h.handleCreate)
	r.Get("/invites/{invite_id}", h.handleGet)
	r.Post("/invites/{invite_id}", h.handleJoin)
	r.Delete("/invites/{invite_id}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, err := guilds.URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}
	channelID, err := guilds.URLParamInt64(r, "channel_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrChannelNotFound)
		return
	}

	invite, err := h.service.Create(r.Context(), user.ID, guildID, channelID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invite)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	invite, err := h.service.Get(r.Context(), chi.URLParam(r, "invite_id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invite)
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	guild, err := h.service.Join(r.Context(), user.ID, chi.URLParam(r, "invite_id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, guild)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	if err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "invite_id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
