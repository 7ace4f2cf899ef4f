package server

import (
	"context"
	"net/http"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/auth"
	"github.com/mAmineChniti/SerialHub/internal/publishing"
	"github.com/mAmineChniti/SerialHub/internal/search"
	"go.uber.org/zap"
)

// HealthCheck reports the status of one optional dependency.
type HealthCheck func(ctx context.Context) error

// StoreHealth is the part of the store the health endpoint needs.
type StoreHealth interface {
	Health(ctx context.Context) (map[string]string, error)
}

type Options struct {
	Stories        *publishing.Service
	Verifier       *auth.Verifier
	Searcher       search.Searcher
	Store          StoreHealth
	Checks         map[string]HealthCheck
	Logger         *zap.Logger
	Debug          bool
	CORSOrigins    []string
	RequestTimeout time.Duration
}

type Server struct {
	stories        *publishing.Service
	verifier       *auth.Verifier
	searcher       search.Searcher
	store          StoreHealth
	checks         map[string]HealthCheck
	log            *zap.Logger
	debug          bool
	corsOrigins    []string
	requestTimeout time.Duration
}

func New(opts Options) *Server {
	s := &Server{
		stories:        opts.Stories,
		verifier:       opts.Verifier,
		searcher:       opts.Searcher,
		store:          opts.Store,
		checks:         opts.Checks,
		log:            opts.Logger,
		debug:          opts.Debug,
		corsOrigins:    opts.CORSOrigins,
		requestTimeout: opts.RequestTimeout,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if len(s.corsOrigins) == 0 {
		s.corsOrigins = []string{"https://*", "http://*"}
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = 5 * time.Second
	}
	return s
}

// NewHTTPServer wraps the routes of s in an http.Server listening on addr.
func NewHTTPServer(addr string, s *Server) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
