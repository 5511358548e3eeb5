package channels

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

// Handler wires the channel endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers channel routes under the guild subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/guilds/{guild_id}/channels", func(cr chi.Router) {
		cr.Get("/", h.handleList)
		cr.Post("/", h.handleCreate)
		cr.Route("/{channel_id}", func(ch chi.Router) {
			ch.Get("/", h.handleGet)
			ch.Patch("/", h.handleModify)
			ch.Delete("/", h.handleDelete)
			ch.Put("/overwrites/{overwrite_id}", h.handleSetOverwrite)
			ch.Delete("/overwrites/{overwrite_id}", h.handleDeleteOverwrite)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, err := guilds.URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}

	out, err := h.service.List(r.Context(), user.ID, guildID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createChannelBody struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Type     int16  `json:"type" validate:"oneof=0 1"`
	ParentID *int64 `json:"parent_id"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, err := guilds.URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}

	var body createChannelBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	channel, err := h.service.Create(r.Context(), user.ID, guildID, ChannelParams{
		Name:     body.Name,
		Type:     body.Type,
		ParentID: body.ParentID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, channel)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, channelID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	channel, err := h.service.Get(r.Context(), user.ID, guildID, channelID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, channel)
}

type modifyChannelBody struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	ParentID *int64  `json:"parent_id"`
	Position *int32  `json:"position"`
}

func (h *Handler) handleModify(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, channelID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var body modifyChannelBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	channel, err := h.service.Modify(r.Context(), user.ID, guildID, channelID, ChannelPatch{
		Name:     body.Name,
		ParentID: body.ParentID,
		Position: body.Position,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, channel)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, channelID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, guildID, channelID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type overwriteBody struct {
	Type  int32 `json:"type" validate:"oneof=0 1"`
	Allow int64 `json:"allow"`
	Deny  int64 `json:"deny"`
}

func (h *Handler) handleSetOverwrite(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, channelID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	overwriteID, err := guilds.URLParamInt64(r, "overwrite_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrChannelNotFound)
		return
	}

	var body overwriteBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	err = h.service.SetOverwrite(r.Context(), user.ID, guildID, channelID, OverwriteParams{
		ID:    overwriteID,
		Type:  body.Type,
		Allow: body.Allow,
		Deny:  body.Deny,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) handleDeleteOverwrite(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, channelID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	overwriteID, err := guilds.URLParamInt64(r, "overwrite_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrChannelNotFound)
		return
	}

	if err := h.service.DeleteOverwrite(r.Context(), user.ID, guildID, channelID, overwriteID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) pathIDs(w http.ResponseWriter, r *http.Request) (guildID, channelID int64, ok bool) {
	guildID, err := guilds.URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return 0, 0, false
	}
	channelID, err = guilds.URLParamInt64(r, "channel_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrChannelNotFound)
		return 0, 0, false
	}
	return guildID, channelID, true
}
