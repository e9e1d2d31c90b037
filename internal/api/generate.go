package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/chat"
	"github.com/fpang/redo-ai/internal/credits"
	"github.com/fpang/redo-ai/internal/filehandler"
	"github.com/fpang/redo-ai/internal/filter"
	"github.com/fpang/redo-ai/internal/generate"
	"github.com/fpang/redo-ai/internal/metrics"
	"github.com/fpang/redo-ai/internal/store"
)

// POST /api/generate
//
// The guest callable. Filters are resolved by ID against the server's own
// catalog so a client cannot inject prompt text. One credit is reserved
// before the model call and refunded if the call fails.
func (s *Server) handleGuestGenerate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	id, ok := s.identify(w, r)
	if !ok {
		return
	}
	if s.ledger == nil || s.editor == nil {
		httpError(w, http.StatusServiceUnavailable, CodeUnavailable, "guest generation is not available")
		return
	}

	var req generate.GuestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	mode, opts, err := s.resolveFilters(string(req.Mode), req.Filters)
	if err != nil {
		httpError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	mimeType, data, err := filehandler.DecodeBase64Image(req.Base64Image)
	if err != nil {
		httpError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if req.MIMEType != "" {
		mimeType = req.MIMEType
	}
	if !filehandler.IsImageMIME(mimeType) {
		httpError(w, http.StatusBadRequest, CodeBadRequest, filehandler.ErrNotImage.Error())
		return
	}
	prompt, err := generate.BuildPrompt(mode, opts)
	if err != nil {
		httpError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	start := s.now()
	logger := log.With().Str("user", id.UserID).Str("mode", string(mode)).Int("filters", len(opts)).Logger()

	balance, err := s.ledger.Reserve(ctx, id.UserID, s.cost)
	if err != nil {
		if errors.Is(err, credits.ErrInsufficient) {
			metrics.Credits("reserve", "insufficient")
			logger.Info().Msg("Guest generation refused: insufficient credits")
			respondJSON(w, http.StatusPaymentRequired, generate.GuestResponse{
				Code:  string(generate.KindQuotaExceeded),
				Error: generate.MsgInsufficient,
			})
			return
		}
		metrics.Credits("reserve", "error")
		httpError(w, http.StatusInternalServerError, CodeInternal, "failed to reserve credits", err.Error())
		return
	}
	metrics.Credits("reserve", "ok")

	res, err := s.editor.Edit(ctx, chat.EditRequest{Image: data, MIMEType: mimeType, Prompt: prompt})
	elapsed := s.now().Sub(start)
	if err != nil {
		kind := callableKind(generate.Classify(err))
		s.refund(ctx, logger, id.UserID)
		logger.Warn().Err(err).Str("kind", string(kind)).Dur("duration", elapsed).Msg("Guest generation failed")
		metrics.Generation(generate.RouteGuest, string(mode), string(kind), elapsed)
		s.record(ctx, id.UserID, mode, opts, string(kind), 0, elapsed)

		f := generate.NewFailure(kind, generate.GuestRoute{}, err)
		respondJSON(w, statusForKind(kind), generate.GuestResponse{Code: string(kind), Error: f.Message})
		return
	}

	logger.Info().Int("balance", balance).Int("output_bytes", len(res.ImageData)).Dur("duration", elapsed).Msg("Guest generation succeeded")
	metrics.Generation(generate.RouteGuest, string(mode), "success", elapsed)
	s.record(ctx, id.UserID, mode, opts, "success", s.cost, elapsed)

	respondJSON(w, http.StatusOK, generate.GuestResponse{
		Success:        true,
		GeneratedImage: filehandler.EncodeDataURL(res.ImageMIMEType, res.ImageData),
		MIMEType:       res.ImageMIMEType,
		Credits:        &balance,
	})
}

// resolveFilters maps the requested filters onto the catalog for mode,
// ignoring everything but their IDs.
func (s *Server) resolveFilters(rawMode string, requested []filter.Option) (filter.Mode, []filter.Option, error) {
	mode, err := filter.ParseMode(rawMode)
	if err != nil {
		return "", nil, err
	}
	if len(requested) == 0 {
		return "", nil, generate.ErrNoFilters
	}
	ids := make([]string, len(requested))
	for i, o := range requested {
		ids[i] = o.ID
	}
	opts, err := s.catalogs[mode].Resolve(ids)
	if err != nil {
		return "", nil, err
	}
	return mode, opts, nil
}

// refund returns the reserved credit. It runs even when the request
// context is already cancelled.
func (s *Server) refund(ctx context.Context, logger zerolog.Logger, userID string) {
	if _, err := s.ledger.Refund(context.WithoutCancel(ctx), userID, s.cost); err != nil {
		metrics.Credits("refund", "error")
		logger.Error().Err(err).Int("amount", s.cost).Msg("Failed to refund credits after failed generation")
		return
	}
	metrics.Credits("refund", "ok")
}

func (s *Server) record(ctx context.Context, userID string, mode filter.Mode, opts []filter.Option, result string, cost int, elapsed time.Duration) {
	if s.history == nil {
		return
	}
	g := &store.Generation{
		ID:         uuid.NewString(),
		UserID:     userID,
		Mode:       string(mode),
		Model:      s.model,
		Result:     result,
		Cost:       cost,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  s.now().Unix(),
	}
	if result != "success" {
		g.Kind = result
	}
	for _, o := range opts {
		g.Filters = append(g.Filters, o.ID)
	}
	if err := s.history.PutGeneration(context.WithoutCancel(ctx), g); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("Failed to record generation")
	}
}

// callableKind decides what a guest is told about a model failure. Key,
// permission and quota problems belong to the shared server key, so the
// guest only ever sees them as unknown.
func callableKind(k generate.Kind) generate.Kind {
	if k == generate.KindContentBlocked {
		return k
	}
	return generate.KindUnknown
}

func statusForKind(k generate.Kind) int {
	switch k {
	case generate.KindQuotaExceeded:
		return http.StatusPaymentRequired
	case generate.KindContentBlocked:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}
