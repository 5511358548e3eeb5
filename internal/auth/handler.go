package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/parley-chat/parley/internal/platform/httpx"
	"github.com/parley-chat/parley/internal/shared"
)

// Handler wires the unauthenticated account endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers register/login under a tighter rate limit than the
// global one; both endpoints run bcrypt.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/register", h.handleRegister)
		gr.Post("/login", h.handleLogin)
	})
	r.Post("/logout", h.handleLogout)
}

type credentialsBody struct {
	Username string `json:"username" validate:"required,min=1,max=32"`
	Password string `json:"password" validate:"required,min=1,max=72"`
}

// TokenResult is the response for register and login.
type TokenResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "malformed request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid credentials")
		return
	}

	user, tok, err := h.service.Register(r.Context(), strings.ToLower(body.Username), body.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, TokenResult{User: user, Token: tok})
}

// handleLogout revokes the device named by the presented token. It checks the
// credential itself rather than sitting behind the authenticated group, since
// it consumes the raw header.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	credential := r.Header.Get("Authorization")
	if credential == "" {
		httpx.RespondError(w, shared.ErrInvalidAuthorization)
		return
	}
	if err := h.service.Logout(r.Context(), credential); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.BadRequest(w, "malformed request body")
		return
	}
	if err := h.validator.Struct(body); err != nil {
		httpx.BadRequest(w, "invalid credentials")
		return
	}

	user, tok, err := h.service.Login(r.Context(), strings.ToLower(body.Username), body.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, TokenResult{User: user, Token: tok})
}
