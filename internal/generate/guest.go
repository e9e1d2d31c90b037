package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/filehandler"
	"github.com/fpang/redo-ai/internal/filter"
)

// GuestPath is where the guest callable is served.
const GuestPath = "/api/generate"

// CreditsPath returns the caller's balance.
const CreditsPath = "/api/credits"

// GuestRequest is the guest callable's request body.
type GuestRequest struct {
	Base64Image string          `json:"base64Image"`
	MIMEType    string          `json:"mimeType,omitempty"`
	Filters     []filter.Option `json:"filters"`
	Mode        filter.Mode     `json:"mode"`
}

// GuestResponse is the guest callable's response body. On failure Success
// is false and Code carries a Kind.
type GuestResponse struct {
	Success        bool   `json:"success"`
	GeneratedImage string `json:"generatedImage,omitempty"`
	MIMEType       string `json:"mimeType,omitempty"`
	Credits        *int   `json:"credits,omitempty"`
	Code           string `json:"code,omitempty"`
	Error          string `json:"error,omitempty"`
}

// CreditsResponse is the body of GET /api/credits.
type CreditsResponse struct {
	Credits int    `json:"credits"`
	UserID  string `json:"userId,omitempty"`
}

// maxGuestResponseBytes bounds a callable response (base64 image included).
const maxGuestResponseBytes = 64 << 20

// GuestClient talks to the guest callable. The shared API key never leaves
// the server; the client only presents the user's token. It also serves as
// the credits.BalanceReader for the guest gate, keyed by token.
type GuestClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGuestClient returns a client for the API at baseURL. A nil httpClient
// uses one without a timeout, since generation has none.
func NewGuestClient(baseURL string, httpClient *http.Client) *GuestClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GuestClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Generate implements Transport.
func (c *GuestClient) Generate(ctx context.Context, call Call) (Output, error) {
	body, err := json.Marshal(GuestRequest{
		Base64Image: base64.StdEncoding.EncodeToString(call.Image),
		MIMEType:    call.MIMEType,
		Filters:     call.Filters,
		Mode:        call.Mode,
	})
	if err != nil {
		return Output{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+GuestPath, bytes.NewReader(body))
	if err != nil {
		return Output{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+call.Credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Output{}, fmt.Errorf("guest callable request failed: %w", err)
	}
	defer resp.Body.Close()

	var out GuestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxGuestResponseBytes)).Decode(&out); err != nil {
		return Output{}, fmt.Errorf("failed to parse callable response (status %d): %w", resp.StatusCode, err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Bool("success", out.Success).
		Str("code", out.Code).
		Dur("duration", time.Since(start)).
		Msg("Guest callable responded")

	if !out.Success {
		if out.Code != "" {
			return Output{}, &CallableError{Code: out.Code, Message: out.Error, Status: resp.StatusCode}
		}
		return Output{}, errors.New("generation failed")
	}

	mimeType, data, err := filehandler.DecodeBase64Image(out.GeneratedImage)
	if err != nil {
		return Output{}, fmt.Errorf("invalid generated image: %w", err)
	}
	if out.MIMEType != "" {
		mimeType = out.MIMEType
	}
	return Output{Image: data, MIMEType: mimeType, Credits: out.Credits}, nil
}

// Balance implements credits.BalanceReader. userID is the guest token.
func (c *GuestClient) Balance(ctx context.Context, token string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+CreditsPath, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("credits request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("credits request returned status %d", resp.StatusCode)
	}
	var out CreditsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to parse credits response: %w", err)
	}
	return out.Credits, nil
}
