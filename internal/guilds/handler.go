package guilds

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/shared"
)

// Handler wires the guild and role endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the guild routes. The router group is expected to be
// behind auth.RequireUser already.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/guilds", h.handleCreate)
	r.Route("/guilds/{guild_id}", func(gr chi.Router) {
		gr.Get("/", h.handleGet)
		gr.Patch("/", h.handleModify)
		gr.Delete("/", h.handleDelete)

		gr.Get("/roles", h.handleListRoles)
		gr.Post("/roles", h.handleCreateRole)
		gr.Patch("/roles/{role_id}", h.handleModifyRole)
		gr.Delete("/roles/{role_id}", h.handleDeleteRole)

		gr.Put("/members/{user_id}/roles/{role_id}", h.handleAssignRole)
		gr.Delete("/members/{user_id}/roles/{role_id}", h.handleUnassignRole)
	})
}

// URLParamInt64 parses a chi URL parameter as a snowflake id.
func URLParamInt64(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

type createGuildBody struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var body createGuildBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid guild name")
		return
	}

	guild, err := h.service.Create(r.Context(), user.ID, body.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, guild)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, err := URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}

	guild, err := h.service.Get(r.Context(), user.ID, guildID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, guild)
}

type modifyGuildBody struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Permissions *int64  `json:"permissions"`
}

func (h *Handler) handleModify(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, err := URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}

	var body modifyGuildBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	guild, err := h.service.Modify(r.Context(), user.ID, guildID,
		GuildPatch{Name: body.Name, Permissions: body.Permissions})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, guild)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, err := URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, guildID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, err := URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}

	roles, err := h.service.Roles(r.Context(), user.ID, guildID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

type roleBody struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Allow       int64  `json:"allow"`
	Deny        int64  `json:"deny"`
	Hoist       bool   `json:"hoist"`
	Mentionable bool   `json:"mentionable"`
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, err := URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}

	var body roleBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	role, err := h.service.CreateRole(r.Context(), user.ID, guildID, RoleParams{
		Name:        body.Name,
		Allow:       body.Allow,
		Deny:        body.Deny,
		Hoist:       body.Hoist,
		Mentionable: body.Mentionable,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

type rolePatchBody struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Allow       *int64  `json:"allow"`
	Deny        *int64  `json:"deny"`
	Position    *int32  `json:"position"`
	Hoist       *bool   `json:"hoist"`
	Mentionable *bool   `json:"mentionable"`
}

func (h *Handler) handleModifyRole(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, err := URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}
	roleID, err := URLParamInt64(r, "role_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}

	var body rolePatchBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return
	}

	role, err := h.service.ModifyRole(r.Context(), user.ID, guildID, roleID, RolePatch{
		Name:        body.Name,
		Allow:       body.Allow,
		Deny:        body.Deny,
		Position:    body.Position,
		Hoist:       body.Hoist,
		Mentionable: body.Mentionable,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	guildID, err := URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}
	roleID, err := URLParamInt64(r, "role_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}

	if err := h.service.DeleteRole(r.Context(), user.ID, guildID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	h.handleRoleAssignment(w, r, h.service.AssignRole)
}

func (h *Handler) handleUnassignRole(w http.ResponseWriter, r *http.Request) {
	h.handleRoleAssignment(w, r, h.service.UnassignRole)
}

func (h *Handler) handleRoleAssignment(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, userID, guildID, targetID, roleID int64) error) {
	user := auth.UserFromContext(r.Context())
	guildID, err := URLParamInt64(r, "guild_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}
	targetID, err := URLParamInt64(r, "user_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrUserNotFound)
		return
	}
	roleID, err := URLParamInt64(r, "role_id")
	if err != nil {
		httpx.RespondError(w, shared.ErrGuildNotFound)
		return
	}

	if err := op(r.Context(), user.ID, guildID, targetID, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
