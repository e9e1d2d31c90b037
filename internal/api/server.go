// Package api serves the Redo AI HTTP API: the guest generate callable,
// credit balance and history, the filter catalogs, and the composite, share
// and bundle endpoints. The same handler runs under redo-web and, through
// the API Gateway adapter, under redo-lambda.
//
// Endpoints:
//
//	GET  /api/health     liveness
//	GET  /api/filters    catalog for ?mode=city|home
//	GET  /api/credits    caller's balance (signed in)
//	GET  /api/history    caller's recent generations (signed in)
//	POST /api/generate   guest callable: reserve, edit with the shared key, refund on failure
//	POST /api/composite  before/after JPEG as a blob or data URL
//	POST /api/share      upload a composite and return a share link
//	POST /api/bundle     zip of original, generated and composite
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/credits"
	"github.com/fpang/redo-ai/internal/filter"
	"github.com/fpang/redo-ai/internal/generate"
	"github.com/fpang/redo-ai/internal/share"
	"github.com/fpang/redo-ai/internal/store"
)

// History is the generation audit trail. store.DynamoStore implements it.
type History interface {
	PutGeneration(ctx context.Context, g *store.Generation) error
	ListGenerations(ctx context.Context, userID string, limit int) ([]*store.Generation, error)
}

// Options wires a Server. Ledger and Editor are needed for the guest
// callable; the other endpoints work without them.
type Options struct {
	Ledger credits.Ledger
	// History is optional. Without it generations are not recorded and
	// /api/history is empty.
	History History
	// Editor calls the model with the server's shared key.
	Editor generate.Editor
	// Model is recorded on history entries.
	Model    string
	Renderer *composite.Renderer
	Sharer   share.Sharer
	// Cost is the credits one generation costs.
	Cost int
	// LocalAuth accepts X-Redo-User or a bare bearer token as the identity
	// when no API Gateway authorizer context is present.
	LocalAuth          bool
	OriginVerifySecret string
	AllowedOrigins     []string
}

// Server holds the API's collaborators.
type Server struct {
	catalogs map[filter.Mode]*filter.Catalog
	ledger   credits.Ledger
	history  History
	editor   generate.Editor
	model    string
	renderer *composite.Renderer
	sharer   share.Sharer
	cost     int
	local    bool

	originVerifySecret string
	allowedOrigins     []string

	now func() time.Time
}

// NewServer builds a Server from opts, filling defaults for the renderer,
// sharer and cost.
func NewServer(opts Options) *Server {
	s := &Server{
		catalogs: map[filter.Mode]*filter.Catalog{
			filter.ModeCity: filter.MustLoad(filter.ModeCity),
			filter.ModeHome: filter.MustLoad(filter.ModeHome),
		},
		ledger:             opts.Ledger,
		history:            opts.History,
		editor:             opts.Editor,
		model:              opts.Model,
		renderer:           opts.Renderer,
		sharer:             opts.Sharer,
		cost:               opts.Cost,
		local:              opts.LocalAuth,
		originVerifySecret: opts.OriginVerifySecret,
		allowedOrigins:     opts.AllowedOrigins,
		now:                time.Now,
	}
	if s.renderer == nil {
		s.renderer = composite.NewRenderer(composite.Options{})
	}
	if s.sharer == nil {
		s.sharer = share.Unsupported{}
	}
	if s.cost <= 0 {
		s.cost = credits.DefaultCost
	}
	return s
}

// Routes registers the API handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc(generate.CreditsPath, s.handleCredits)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc(generate.GuestPath, s.handleGuestGenerate)
	mux.HandleFunc("/api/composite", s.handleComposite)
	mux.HandleFunc("/api/share", s.handleShare)
	mux.HandleFunc("/api/bundle", s.handleBundle)
}

// Handler returns the API wrapped in its middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Routes(mux)
	return s.Wrap(mux)
}

// Wrap applies origin verification, CORS and request logging to next.
func (s *Server) Wrap(next http.Handler) http.Handler {
	return withLogging(withCORS(s.allowedOrigins, withOriginVerify(s.originVerifySecret, next)))
}
