package generate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fpang/redo-ai/internal/filter"
)

func TestGuestClient_Generate(t *testing.T) {
	var got GuestRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != GuestPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		credits := 9
		json.NewEncoder(w).Encode(GuestResponse{
			Success:        true,
			GeneratedImage: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("generated")),
			Credits:        &credits,
		})
	}))
	defer srv.Close()

	opts := cityDefaults(t)
	c := NewGuestClient(srv.URL+"/", srv.Client())
	out, err := c.Generate(context.Background(), Call{
		Image: []byte("original"), MIMEType: "image/jpeg", Filters: opts, Mode: filter.ModeCity, Credential: "tok-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out.Image) != "generated" || out.MIMEType != "image/png" {
		t.Errorf("unexpected output %q %q", out.Image, out.MIMEType)
	}
	if out.Credits == nil || *out.Credits != 9 {
		t.Errorf("expected credits 9, got %v", out.Credits)
	}
	if auth != "Bearer tok-1" {
		t.Errorf("expected bearer token, got %q", auth)
	}
	if got.Mode != filter.ModeCity || len(got.Filters) != len(opts) || got.Filters[0].ID != opts[0].ID {
		t.Errorf("unexpected request %+v", got)
	}
	if got.Base64Image != base64.StdEncoding.EncodeToString([]byte("original")) {
		t.Error("expected raw base64 image in request")
	}
}

func TestGuestClient_GenerateFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     GuestResponse
		wantCode string
	}{
		{"coded", http.StatusOK, GuestResponse{Code: "quota_exceeded", Error: "Insufficient credits"}, "quota_exceeded"},
		{"coded with status", http.StatusForbidden, GuestResponse{Code: "content_blocked"}, "content_blocked"},
		{"uncoded", http.StatusOK, GuestResponse{Error: "boom"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			_, err := NewGuestClient(srv.URL, srv.Client()).Generate(context.Background(), Call{Image: []byte{1}})
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *CallableError
			if tt.wantCode == "" {
				if errors.As(err, &ce) {
					t.Errorf("expected generic error, got %v", ce)
				}
				if Classify(err) != KindUnknown {
					t.Errorf("expected unknown, got %s", Classify(err))
				}
				return
			}
			if !errors.As(err, &ce) || ce.Code != tt.wantCode || ce.Status != tt.status {
				t.Errorf("expected CallableError %s/%d, got %v", tt.wantCode, tt.status, err)
			}
		})
	}
}

func TestGuestClient_Balance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(CreditsResponse{Credits: 7, UserID: "u1"})
	}))
	defer srv.Close()

	c := NewGuestClient(srv.URL, srv.Client())
	n, err := c.Balance(context.Background(), "good")
	if err != nil || n != 7 {
		t.Errorf("expected 7, got %d (%v)", n, err)
	}
	if _, err := c.Balance(context.Background(), "bad"); err == nil {
		t.Error("expected error for unauthorized token")
	}
}
