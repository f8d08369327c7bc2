package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/middleware"
	"github.com/BuzzLyutic/tasksync/pkg/respond"
)

type Deps struct {
	Tasks       *TaskHandler
	Auth        *AuthHandler
	WS          *WSHandler
	Verifier    middleware.Verifier
	Limiter     *middleware.RateLimiter // optional
	Metrics     http.Handler            // optional
	CORSOrigins []string
	Logger      *zap.Logger
}

// Routes wires the request gateway and the connection gateway on one router.
func Routes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Get("/ws", d.WS.Serve)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", d.Auth.Register)
		r.Post("/login", d.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Verifier, d.Logger))
			if d.Limiter != nil {
				r.Use(d.Limiter.Middleware())
			}

			r.Get("/me", d.Auth.Me)
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", d.Tasks.List)
				r.Post("/", d.Tasks.Create)
				r.Put("/{id}", d.Tasks.Update)
				r.Patch("/{id}", d.Tasks.Update)
				r.Delete("/{id}", d.Tasks.Delete)
				r.Post("/{id}/time", d.Tasks.AccumulateTime)
			})
		})
	})

	return r
}
