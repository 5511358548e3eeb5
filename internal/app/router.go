package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/channels"
	"github.com/parley-chat/parley/internal/guilds"
	"github.com/parley-chat/parley/internal/invites"
	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/internal/relationships"
	"github.com/parley-chat/parley/internal/tracks"
	"github.com/parley-chat/parley/internal/users"
	"github.com/parley-chat/parley/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthService *auth.Service

	AuthHandler          *auth.Handler
	UsersHandler         *users.Handler
	GuildsHandler        *guilds.Handler
	ChannelsHandler      *channels.Handler
	InvitesHandler       *invites.Handler
	RelationshipsHandler *relationships.Handler
	TracksHandler        *tracks.Handler
	JobHandler           *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Parley defaults. Account creation
// and login stay outside the authenticated group; everything else requires a
// valid token.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.AuthHandler.MountRoutes(r)

	r.Group(func(gr chi.Router) {
		gr.Use(params.AuthService.RequireUser)

		params.UsersHandler.MountRoutes(gr)
		params.GuildsHandler.MountRoutes(gr)
		params.ChannelsHandler.MountRoutes(gr)
		params.InvitesHandler.MountRoutes(gr)
		params.RelationshipsHandler.MountRoutes(gr)
		params.TracksHandler.MountRoutes(gr)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(jr chi.Router) {
			params.JobHandler.MountRoutes(jr)
		})
	}

	return r
}
