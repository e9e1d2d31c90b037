package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fpang/redo-ai/internal/composite"
	"github.com/fpang/redo-ai/internal/filehandler"
	"github.com/fpang/redo-ai/internal/metrics"
	"github.com/fpang/redo-ai/internal/share"
)

// Composite output formats.
const (
	FormatBlob    = "blob"
	FormatDataURL = "dataurl"
)

// PairRequest carries the two images of a comparison as data URLs or raw
// base64. Remote URLs are not fetched.
type PairRequest struct {
	OriginalImage  string `json:"originalImage"`
	GeneratedImage string `json:"generatedImage"`
	// Format applies to /api/composite only.
	Format string `json:"format,omitempty"`
}

// CompositeResponse is the body of POST /api/composite with format=dataurl.
type CompositeResponse struct {
	DataURL  string `json:"dataUrl"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Filename string `json:"filename"`
}

type pair struct {
	original  share.Image
	generated share.Image
}

func decodePair(req PairRequest) (pair, error) {
	var p pair
	for _, side := range []struct {
		name string
		raw  string
		dst  *share.Image
	}{
		{"originalImage", req.OriginalImage, &p.original},
		{"generatedImage", req.GeneratedImage, &p.generated},
	} {
		if side.raw == "" {
			return pair{}, fmt.Errorf("%s is required", side.name)
		}
		mimeType, data, err := filehandler.DecodeBase64Image(side.raw)
		if err != nil {
			return pair{}, fmt.Errorf("%s: %w", side.name, err)
		}
		*side.dst = share.Image{Data: data, MIMEType: mimeType}
	}
	return p, nil
}

// render builds the composite, writing the error response on failure.
func (s *Server) render(ctx context.Context, w http.ResponseWriter, p pair) (*composite.Artifact, bool) {
	start := time.Now()
	art, err := s.renderer.Render(ctx, composite.FromBytes(p.original.Data), composite.FromBytes(p.generated.Data))
	if err != nil {
		var loadErr *composite.LoadError
		switch {
		case errors.Is(err, composite.ErrTimeout):
			metrics.Composite("timeout", 0, time.Since(start))
			httpError(w, http.StatusGatewayTimeout, CodeTimeout, err.Error())
		case errors.As(err, &loadErr):
			metrics.Composite("load_error", 0, time.Since(start))
			httpError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		default:
			metrics.Composite("error", 0, time.Since(start))
			httpError(w, http.StatusInternalServerError, CodeInternal, "failed to render composite", err.Error())
		}
		return nil, false
	}
	metrics.Composite("success", len(art.Data), time.Since(start))
	return art, true
}

func (s *Server) readPair(w http.ResponseWriter, r *http.Request) (PairRequest, pair, bool) {
	var req PairRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return req, pair{}, false
	}
	p, err := decodePair(req)
	if err != nil {
		httpError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return req, pair{}, false
	}
	return req, p, true
}

// POST /api/composite
func (s *Server) handleComposite(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	req, p, ok := s.readPair(w, r)
	if !ok {
		return
	}
	format := req.Format
	if format == "" {
		format = FormatBlob
	}
	if format != FormatBlob && format != FormatDataURL {
		httpError(w, http.StatusBadRequest, CodeBadRequest, "format must be blob or dataurl")
		return
	}

	art, ok := s.render(r.Context(), w, p)
	if !ok {
		return
	}
	if format == FormatDataURL {
		respondJSON(w, http.StatusOK, CompositeResponse{
			DataURL:  art.DataURL(),
			Width:    art.Width,
			Height:   art.Height,
			Filename: composite.Filename,
		})
		return
	}
	_ = share.Download(w, art)
}

// POST /api/share
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	_, p, ok := s.readPair(w, r)
	if !ok {
		return
	}
	art, ok := s.render(r.Context(), w, p)
	if !ok {
		return
	}
	link, err := s.sharer.Share(r.Context(), art)
	if err != nil {
		if errors.Is(err, share.ErrShareUnsupported) {
			httpError(w, http.StatusNotImplemented, CodeShareUnsupported, err.Error())
			return
		}
		httpError(w, http.StatusInternalServerError, CodeInternal, "failed to share composite", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, link)
}

// POST /api/bundle
func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	_, p, ok := s.readPair(w, r)
	if !ok {
		return
	}
	art, ok := s.render(r.Context(), w, p)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := share.Bundle(&buf, p.original, p.generated, art); err != nil {
		httpError(w, http.StatusInternalServerError, CodeInternal, "failed to build bundle", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+share.BundleName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
