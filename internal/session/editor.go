// Package session holds the editor's view state: the uploaded photo, the
// selected filters, the latest result and the comparison slider. An Editor
// holds exactly one result slot, so a comparison is only ever shown for the
// most recent successful generation.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/filehandler"
	"github.com/fpang/redo-ai/internal/filter"
	"github.com/fpang/redo-ai/internal/generate"
	"github.com/fpang/redo-ai/internal/slider"
)

// State is the editor's lifecycle stage.
type State int

const (
	// Empty has no photo.
	Empty State = iota
	// Editing has a photo and accepts filter changes.
	Editing
	// Generating has a request in flight; input is locked.
	Generating
	// Result shows the before/after comparison.
	Result
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Editing:
		return "editing"
	case Generating:
		return "generating"
	case Result:
		return "result"
	}
	return "unknown"
}

var (
	// ErrGenerating is returned for edits attempted while a request runs.
	ErrGenerating = errors.New("a transformation is in progress")
	// ErrCannotGenerate is returned by Begin without a photo or filters.
	ErrCannotGenerate = errors.New("upload a photo and select at least one filter")
)

// Editor is safe for concurrent use.
type Editor struct {
	mu        sync.Mutex
	state     State
	selection *filter.Selection
	upload    *filehandler.Upload
	result    *generate.Result
	message   string
	paywall   bool
	slider    *slider.Slider
}

// NewEditor returns an empty editor in mode with the catalog defaults
// selected.
func NewEditor(mode filter.Mode) (*Editor, error) {
	c, err := filter.Load(mode)
	if err != nil {
		return nil, err
	}
	return &Editor{
		selection: filter.DefaultSelection(c),
		slider:    slider.New(slider.Interactive, slider.Rect{}),
	}, nil
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) Mode() filter.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.Catalog().Mode()
}

// SetMode switches catalogs. The selection resets to the new mode's
// defaults and any result is dropped.
func (e *Editor) SetMode(mode filter.Mode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Generating {
		return ErrGenerating
	}
	if mode == e.selection.Catalog().Mode() {
		return nil
	}
	c, err := filter.Load(mode)
	if err != nil {
		return err
	}
	e.selection = filter.DefaultSelection(c)
	e.dropResultLocked()
	return nil
}

// Upload validates the file and makes it the current photo. A rejected file
// leaves the editor untouched apart from the message. Accepting a photo
// clears any previous result.
func (e *Editor) Upload(name string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Generating {
		return ErrGenerating
	}

	u, err := filehandler.NewUpload(name, data)
	if err != nil {
		e.message = uploadMessage(err)
		return err
	}

	e.upload = u
	e.result = nil
	e.message = ""
	e.paywall = false
	e.state = Editing
	log.Debug().Str("name", name).Str("mime", u.MIMEType).Int("width", u.Width).Int("height", u.Height).Msg("Photo uploaded")
	return nil
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, filehandler.ErrNotImage):
		return "Please choose an image file."
	case errors.Is(err, filehandler.ErrTooLarge):
		return fmt.Sprintf("Please choose an image under %d MB.", filehandler.MaxUploadBytes>>20)
	case errors.Is(err, filehandler.ErrEmpty):
		return "That file is empty."
	}
	return "That photo could not be read."
}

// Toggle flips one filter.
func (e *Editor) Toggle(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Generating {
		return false, ErrGenerating
	}
	return e.selection.Toggle(id)
}

// Select replaces the selection.
func (e *Editor) Select(ids ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Generating {
		return ErrGenerating
	}
	if _, err := e.selection.Catalog().Resolve(ids); err != nil {
		return err
	}
	e.selection.Clear()
	return e.selection.Select(ids...)
}

// Selected returns the active filter IDs in catalog order.
func (e *Editor) Selected() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.IDs()
}

// Grouped returns the selection grouped by category, for home mode.
func (e *Editor) Grouped() []filter.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.Grouped()
}

// CanGenerate reports whether Generate should be enabled.
func (e *Editor) CanGenerate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canGenerateLocked()
}

func (e *Editor) canGenerateLocked() bool {
	return e.state == Editing && e.upload != nil && !e.selection.Empty()
}

// Begin locks the editor and returns the request to dispatch over route.
func (e *Editor) Begin(route generate.Route) (generate.Request, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Generating {
		return generate.Request{}, ErrGenerating
	}
	if !e.canGenerateLocked() {
		return generate.Request{}, ErrCannotGenerate
	}
	e.state = Generating
	e.message = ""
	e.paywall = false
	return generate.Request{
		Image:    e.upload.Data,
		MIMEType: e.upload.MIMEType,
		Mode:     e.selection.Catalog().Mode(),
		Filters:  e.selection.Active(),
		Route:    route,
	}, nil
}

// Succeed stores res and shows the comparison from the initial position.
func (e *Editor) Succeed(res *generate.Result) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Generating {
		return fmt.Errorf("cannot accept a result while %s", e.state)
	}
	e.result = res
	e.state = Result
	e.slider.Reset()
	return nil
}

// Fail returns to Editing with the filters kept and the failure's message
// shown.
func (e *Editor) Fail(err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Generating {
		return fmt.Errorf("cannot accept a failure while %s", e.state)
	}
	e.state = Editing
	var f *generate.Failure
	if errors.As(err, &f) {
		e.message = f.Message
		e.paywall = f.OpenPaywall
	} else {
		e.message = generate.MsgUnknown
	}
	return nil
}

// Generate runs one request through o, moving the editor through
// Generating to Result or back to Editing.
func (e *Editor) Generate(ctx context.Context, o *generate.Orchestrator, route generate.Route) (*generate.Result, error) {
	req, err := e.Begin(route)
	if err != nil {
		return nil, err
	}
	res, err := o.Generate(ctx, req)
	if err != nil {
		_ = e.Fail(err)
		return nil, err
	}
	_ = e.Succeed(res)
	return res, nil
}

// Edit leaves the comparison and goes back to filter editing with the same
// photo.
func (e *Editor) Edit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Result {
		return fmt.Errorf("no result to leave while %s", e.state)
	}
	e.dropResultLocked()
	return nil
}

func (e *Editor) dropResultLocked() {
	e.result = nil
	if e.upload != nil {
		e.state = Editing
	} else {
		e.state = Empty
	}
}

// Reset clears everything back to an empty editor with default filters.
func (e *Editor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Empty
	e.upload = nil
	e.result = nil
	e.message = ""
	e.paywall = false
	e.selection = filter.DefaultSelection(e.selection.Catalog())
	e.slider.Reset()
}

// Photo returns the current upload, or nil.
func (e *Editor) Photo() *filehandler.Upload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.upload
}

// Result returns the latest result, or nil outside the Result state.
func (e *Editor) Result() *generate.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Message is the inline message to show, if any.
func (e *Editor) Message() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.message
}

// Paywall reports whether the last failure asked for the paywall.
func (e *Editor) Paywall() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paywall
}

// Slider returns the comparison slider. Callers must not use it
// concurrently with Succeed or Reset.
func (e *Editor) Slider() *slider.Slider { return e.slider }
