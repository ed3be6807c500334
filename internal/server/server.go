// Package server AnimeNexus
//
// The AnimeNexus is a blog service about anime: posts, categories, moderated comments and user profiles.
//
//     Schemes: https
//     BasePath: /v1
//     Version: 1.0.0
//
//     Produces:
//     - application/json
//     Consumes:
//     - application/json
//
// swagger:meta
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"

	"github.com/Decentr-net/animenexus/internal/api"
	"github.com/Decentr-net/animenexus/internal/auth"
	"github.com/Decentr-net/animenexus/internal/cache"
	"github.com/Decentr-net/animenexus/internal/health"
	mm "github.com/Decentr-net/animenexus/internal/middleware"
	"github.com/Decentr-net/animenexus/internal/service"
)

//go:generate swagger generate spec -t swagger -m -c . -o ../../static/swagger.json

const (
	maxBodySize  = 64 << 10
	maxCoverSize = 5 << 20

	healthTimeout = 5 * time.Second
)

// Config ...
type Config struct {
	Timeout        time.Duration
	AllowedOrigins []string
	// Cache is used for cached responses.
	Cache            cache.Cache
	ResponseCacheTTL time.Duration
	// ContactLimiter limits contact form submissions. Nil means no limit.
	ContactLimiter *mm.RateLimiter
	Pingers        []health.Pinger
}

type server struct {
	s        service.Service
	sessions *auth.Sessions
}

// SetupRouter setups handlers to chi router.
func SetupRouter(s service.Service, sessions *auth.Sessions, r chi.Router, cfg Config) {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(
		api.RequestIDMiddleware,
		api.LoggerMiddleware,
		middleware.StripSlashes,
		cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Content-Type", api.RequestIDHeader},
			AllowCredentials: true,
		}),
		api.RecovererMiddleware,
		api.TimeoutMiddleware(cfg.Timeout),
		sessions.Middleware,
	)

	srv := server{
		s:        s,
		sessions: sessions,
	}

	categories := srv.listCategories
	if cfg.Cache != nil && cfg.ResponseCacheTTL > 0 {
		categories = mm.Cached(cfg.Cache, cfg.ResponseCacheTTL, srv.listCategories)
	}

	contact := http.Handler(http.HandlerFunc(srv.sendContactMessage))
	if cfg.ContactLimiter != nil {
		contact = cfg.ContactLimiter.Middleware(contact)
	}

	r.Get("/health", health.Handler(healthTimeout, cfg.Pingers...))

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(api.BodyLimiterMiddleware(maxBodySize))

			r.Get("/", srv.home)
			r.Get("/posts", srv.listPosts)
			r.Get("/posts/{id}", srv.getPost)
			r.Get("/categories", categories)
			r.Get("/profile/{username}", srv.getProfile)
			r.Method(http.MethodPost, "/contact", contact)

			r.Post("/signup", srv.signup)
			r.Post("/login", srv.login)
			r.Post("/logout", srv.logout)

			r.Group(func(r chi.Router) {
				r.Use(loginRequired(requestPath))

				r.Post("/posts", srv.createPost)
				r.Get("/posts/{id}/edit", srv.getOwnedPost)
				r.Post("/posts/{id}/edit", srv.editPost)
				r.Get("/posts/{id}/delete", srv.getOwnedPost)
				r.Post("/posts/{id}/delete", srv.deletePost)
				r.Post("/posts/{id}/publish", srv.publishPost)

				r.Get("/comments/{id}/edit", srv.getOwnedComment)
				r.Post("/comments/{id}/edit", srv.editComment)
				r.Get("/comments/{id}/delete", srv.getOwnedComment)
				r.Post("/comments/{id}/delete", srv.deleteComment)

				r.Get("/profile", srv.getOwnProfile)
				r.Post("/profile", srv.updateProfile)

				r.Post("/admin/categories", srv.createCategory)
				r.Post("/admin/categories/{id}/delete", srv.deleteCategory)
				r.Post("/admin/comments/approve", srv.moderateComments(true))
				r.Post("/admin/comments/reject", srv.moderateComments(false))
			})

			r.With(loginRequired(postPath)).Post("/posts/{id}/comments", srv.submitComment)
		})

		r.With(
			api.BodyLimiterMiddleware(maxCoverSize),
			loginRequired(requestPath),
		).Post("/covers", srv.uploadCover)
	})
}

// loginRequired redirects anonymous requests to login. The request itself is not replayed after login.
func loginRequired(next func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.ActorFrom(r.Context()) == nil {
				auth.RedirectToLogin(w, r, next(r))
				return
			}

			h.ServeHTTP(w, r)
		})
	}
}

func requestPath(r *http.Request) string {
	return r.URL.Path
}

// postPath returns post details path for nested post routes.
func postPath(r *http.Request) string {
	return "/v1/posts/" + chi.URLParam(r, "id")
}

// writeServiceError translates service errors to responses.
// Forbidden is answered as not found to hide existence of entities owned by others.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		auth.RedirectToLogin(w, r, r.URL.Path)
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotFound):
		api.WriteError(w, http.StatusNotFound, "not found")
	case errors.As(err, &verr):
		api.WriteValidationError(w, verr.Fields)
	default:
		api.WriteInternalErrorf(r.Context(), w, "%s", err.Error())
	}
}
