package tracks

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/guilds"
	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/shared"
)

// Handler wires the track endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the track routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/tracks", h.handleCreate)
	r.Get("/tracks/{track_id}", h.handleGet)
	r.Patch("/tracks/{track_id}", h.handleModify)
	r.Delete("/tracks/{track_id}", h.handleDelete)
	r.Get("/users/{user_id}/tracks", h.handleListUser)
}

type trackBody struct {
	Content string `json:"content" validate:"required,min=1,max=2048"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var body trackBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid track content")
		return
	}

	track, err := h.service.Create(r.Context(), user.ID, body.Content)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, track)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	trackID, err := guilds.URLParamInt64(r, "track_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrTrackNotFound)
		return
	}

	track, err := h.service.Get(r.Context(), user.ID, trackID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, track)
}

func (h *Handler) handleModify(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	trackID, err := guilds.URLParamInt64(r, "track_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrTrackNotFound)
		return
	}

	var body trackBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid track content")
		return
	}

	track, err := h.service.Modify(r.Context(), user.ID, trackID, body.Content)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, track)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	trackID, err := guilds.URLParamInt64(r, "track_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrTrackNotFound)
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, trackID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) handleListUser(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	authorID, err := guilds.URLParamInt64(r, "user_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrUserNotFound)
		return
	}

	var before int64
	if raw := r.URL.Query().Get("before"); raw != "" {
		before, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.BadRequest(w, "invalid before cursor")
			return
		}
	}

	out, err := h.service.ListUser(r.Context(), user.ID, authorID, before)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
