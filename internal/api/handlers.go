package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/auth"
	"github.com/fpang/redo-ai/internal/filter"
	"github.com/fpang/redo-ai/internal/generate"
	"github.com/fpang/redo-ai/internal/store"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// FiltersResponse is the body of GET /api/filters.
type FiltersResponse struct {
	Mode     filter.Mode     `json:"mode"`
	Filters  []filter.Option `json:"filters"`
	Defaults []string        `json:"defaults"`
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Generations []*store.Generation `json:"generations"`
}

// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/filters?mode=city|home
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	mode, err := filter.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		httpError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	c := s.catalogs[mode]
	w.Header().Set("Cache-Control", "public, max-age=3600")
	respondJSON(w, http.StatusOK, FiltersResponse{Mode: mode, Filters: c.Options(), Defaults: c.Defaults()})
}

// GET /api/credits
func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id, ok := s.identify(w, r)
	if !ok {
		return
	}
	if s.ledger == nil {
		httpError(w, http.StatusServiceUnavailable, CodeUnavailable, "credits are not available")
		return
	}
	balance, err := s.ledger.Balance(r.Context(), id.UserID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, CodeInternal, "failed to read credits", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, generate.CreditsResponse{Credits: balance, UserID: id.UserID})
}

// GET /api/history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id, ok := s.identify(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpError(w, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	resp := HistoryResponse{Generations: []*store.Generation{}}
	if s.history != nil {
		gens, err := s.history.ListGenerations(r.Context(), id.UserID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, CodeInternal, "failed to read history", err.Error())
			return
		}
		if gens != nil {
			resp.Generations = gens
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// identify resolves the caller, writing a 401 when there is none.
func (s *Server) identify(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, err := auth.IdentityFromRequest(r, s.local)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) {
			log.Warn().Err(err).Msg("Identity lookup failed")
		}
		httpError(w, http.StatusUnauthorized, CodeUnauthenticated, auth.ErrUnauthenticated.Error())
		return auth.Identity{}, false
	}
	return id, true
}
