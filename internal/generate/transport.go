package generate

import (
	"context"
	"errors"
	"sync"

	"github.com/fpang/redo-ai/internal/chat"
	"github.com/fpang/redo-ai/internal/filter"
)

// Call is one request to a transport.
type Call struct {
	Image    []byte
	MIMEType string
	Prompt   string
	// Filters and Mode travel with the call for transports (the guest
	// callable) that rebuild the prompt on their side.
	Filters []filter.Option
	Mode    filter.Mode
	// Credential is the guest token or the user's API key, depending on
	// the route. The demo transport ignores it.
	Credential string
}

// Output is a transport's successful result.
type Output struct {
	Image    []byte
	MIMEType string
	// Credits is the balance after the call when the transport reports one.
	Credits *int
}

// Transport performs one generation. Implementations do not retry.
type Transport interface {
	Generate(ctx context.Context, call Call) (Output, error)
}

// Editor is the image edit capability a transport drives.
type Editor interface {
	Edit(ctx context.Context, req chat.EditRequest) (*chat.EditResult, error)
}

// EditorTransport calls the model directly with a fixed editor. It backs
// the demo route.
type EditorTransport struct {
	Editor Editor
}

// Generate implements Transport.
func (t *EditorTransport) Generate(ctx context.Context, call Call) (Output, error) {
	return edit(ctx, t.Editor, call)
}

// EditorFactory builds an editor bound to one API key.
type EditorFactory func(ctx context.Context, apiKey string) (Editor, error)

// KeyedTransport calls the model with the key carried in Call.Credential.
// It backs the bring-your-own-key route. Editors are cached per key.
type KeyedTransport struct {
	NewEditor EditorFactory

	mu      sync.Mutex
	editors map[string]Editor
}

// NewKeyedTransport returns a transport that builds editors with f.
func NewKeyedTransport(f EditorFactory) *KeyedTransport {
	return &KeyedTransport{NewEditor: f}
}

// Generate implements Transport.
func (t *KeyedTransport) Generate(ctx context.Context, call Call) (Output, error) {
	if call.Credential == "" {
		return Output{}, errors.New("API_KEY_INVALID: no API key supplied")
	}
	editor, err := t.editor(ctx, call.Credential)
	if err != nil {
		return Output{}, err
	}
	return edit(ctx, editor, call)
}

func (t *KeyedTransport) editor(ctx context.Context, key string) (Editor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.editors[key]; ok {
		return e, nil
	}
	e, err := t.NewEditor(ctx, key)
	if err != nil {
		return nil, err
	}
	if t.editors == nil {
		t.editors = make(map[string]Editor)
	}
	t.editors[key] = e
	return e, nil
}

func edit(ctx context.Context, editor Editor, call Call) (Output, error) {
	if editor == nil {
		return Output{}, errors.New("no image editor configured")
	}
	res, err := editor.Edit(ctx, chat.EditRequest{Image: call.Image, MIMEType: call.MIMEType, Prompt: call.Prompt})
	if err != nil {
		return Output{}, err
	}
	return Output{Image: res.ImageData, MIMEType: res.ImageMIMEType}, nil
}

// GeminiEditorFactory returns an EditorFactory backed by the Gemini SDK.
func GeminiEditorFactory(model string) EditorFactory {
	return func(ctx context.Context, apiKey string) (Editor, error) {
		client, err := chat.NewClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		return chat.NewImageEditor(client, model), nil
	}
}
