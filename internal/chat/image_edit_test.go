package chat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"google.golang.org/genai"
)

type fakeModels struct {
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	return f.resp, f.err
}

func respWith(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func TestEdit_ReturnsFirstInlineImage(t *testing.T) {
	fake := &fakeModels{resp: respWith(
		&genai.Part{Text: "Here you go."},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("first")}},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte("second")}},
	)}
	editor := NewImageEditorWith(fake, "")

	res, err := editor.Edit(context.Background(), EditRequest{Image: []byte("src"), MIMEType: "image/jpeg", Prompt: "- Remove trash."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(res.ImageData, []byte("first")) || res.ImageMIMEType != "image/png" {
		t.Errorf("expected first image part, got %q %s", res.ImageData, res.ImageMIMEType)
	}
	if res.Text != "Here you go." {
		t.Errorf("expected text to be collected, got %q", res.Text)
	}

	if fake.model != DefaultImageModel {
		t.Errorf("expected default model, got %s", fake.model)
	}
	if got := fake.config.ResponseModalities; len(got) != 2 || got[0] != "TEXT" || got[1] != "IMAGE" {
		t.Errorf("expected TEXT+IMAGE modalities, got %v", got)
	}
	parts := fake.contents[0].Parts
	if parts[0].InlineData == nil || string(parts[0].InlineData.Data) != "src" || parts[1].Text != "- Remove trash." {
		t.Error("expected image part followed by the prompt")
	}
}

func TestEdit_NoImage(t *testing.T) {
	fake := &fakeModels{resp: respWith(&genai.Part{Text: "I cannot do that."})}
	_, err := NewImageEditorWith(fake, "m").Edit(context.Background(), EditRequest{})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if !strings.Contains(err.Error(), "no image data found") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestEdit_NoImageKeepsTextValidUTF8(t *testing.T) {
	// One ASCII byte puts every two-byte rune boundary on an odd offset.
	text := "a" + strings.Repeat("é", 150)
	fake := &fakeModels{resp: respWith(&genai.Part{Text: text})}
	_, err := NewImageEditorWith(fake, "m").Edit(context.Background(), EditRequest{})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if !utf8.ValidString(err.Error()) {
		t.Errorf("error text is not valid UTF-8: %q", err.Error())
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"aéé", 2, "a..."},
		{"日本語", 4, "日..."},
		{"日本語", 1, "..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.s, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d): expected %q, got %q", tt.s, tt.max, tt.want, got)
		}
	}
}

func TestEdit_PromptBlocked(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReason("SAFETY")},
	}}
	_, err := NewImageEditorWith(fake, "m").Edit(context.Background(), EditRequest{})
	var blocked *BlockedError
	if !errors.As(err, &blocked) || blocked.Reason != "SAFETY" {
		t.Errorf("expected BlockedError(SAFETY), got %v", err)
	}
}

func TestEdit_ImageSafetyFinishReason(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReason("IMAGE_SAFETY")}},
	}}
	_, err := NewImageEditorWith(fake, "m").Edit(context.Background(), EditRequest{})
	var blocked *BlockedError
	if !errors.As(err, &blocked) || blocked.Reason != "IMAGE_SAFETY" {
		t.Errorf("expected BlockedError(IMAGE_SAFETY), got %v", err)
	}
}

func TestEdit_TransportErrorIsWrapped(t *testing.T) {
	apiErr := genai.APIError{Code: 403, Status: "PERMISSION_DENIED", Message: "billing not enabled"}
	fake := &fakeModels{err: apiErr}
	_, err := NewImageEditorWith(fake, "m").Edit(context.Background(), EditRequest{})
	var got genai.APIError
	if !errors.As(err, &got) || got.Code != 403 {
		t.Errorf("expected wrapped APIError, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	if err := Probe(context.Background(), &fakeModels{resp: respWith(&genai.Part{Text: "hello"})}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Probe(context.Background(), &fakeModels{resp: &genai.GenerateContentResponse{}}); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestGetImageModel(t *testing.T) {
	t.Setenv("REDO_IMAGE_MODEL", "")
	if got := GetImageModel(); got != DefaultImageModel {
		t.Errorf("expected %s, got %s", DefaultImageModel, got)
	}
	t.Setenv("REDO_IMAGE_MODEL", ModelGemini3ProImage)
	if got := GetImageModel(); got != ModelGemini3ProImage {
		t.Errorf("expected %s, got %s", ModelGemini3ProImage, got)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), ""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}
