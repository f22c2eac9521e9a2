package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pollbooth/internal/repository"
	"pollbooth/internal/service"
)

// Deps are the collaborators the HTTP layer delegates to.
type Deps struct {
	Users   *repository.UserRepository
	Polls   *service.PollService
	Ledger  *service.VoteLedger
	Results *service.ResultsService
	// IsAdmin decides elevated privilege for a proxy login.
	IsAdmin func(login string) bool
	// Ping checks store connectivity for /healthz.
	Ping       func(ctx context.Context) error
	UserHeader string
	Logger     *slog.Logger
}

// Server exposes the poll routes over HTTP.
type Server struct {
	deps   Deps
	logger *slog.Logger
	http   *http.Server
}

func New(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.IsAdmin == nil {
		deps.IsAdmin = func(string) bool { return false }
	}
	if deps.UserHeader == "" {
		deps.UserHeader = "X-Forwarded-User"
	}
	s := &Server{deps: deps, logger: deps.Logger}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.identify)

	r.Get("/healthz", s.healthz)
	r.Get("/categories", s.listCategories)

	r.Route("/polls", func(r chi.Router) {
		r.Get("/", s.listPolls)
		r.With(s.requireUser).Post("/", s.createPoll)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.pollDetail)
			r.Get("/results", s.pollResults)
			r.Get("/vote", s.redirectToDetail)

			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Post("/vote", s.castVote)
				r.Post("/toggle", s.togglePoll)
				r.Post("/delete", s.deletePoll)
			})
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Get("/my-polls", s.myPolls)
		r.Get("/history", s.voteHistory)
		r.Get("/profile", s.profile)
	})

	return r
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "event", "http_listen", "module", "httpapi", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
