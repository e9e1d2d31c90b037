package generate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/redo-ai/internal/credits"
	"github.com/fpang/redo-ai/internal/filter"
	"github.com/fpang/redo-ai/internal/metrics"
)

// Request is one press of Generate. It is consumed once.
type Request struct {
	Image    []byte
	MIMEType string
	Mode     filter.Mode
	// Filters must be in catalog order.
	Filters []filter.Option
	Route   Route
}

// Result is a successful generation.
type Result struct {
	Original      []byte
	OriginalMIME  string
	Generated     []byte
	GeneratedMIME string
	Prompt        string
	Route         string
	// Credits is the guest balance after the call, when known.
	Credits *int
}

// Transports holds one transport per route. A nil transport makes its
// route fail as unknown.
type Transports struct {
	Demo  Transport
	Guest Transport
	BYOK  Transport
}

// Orchestrator runs generations, at most one at a time.
type Orchestrator struct {
	transports Transports
	gate       *credits.Gate
	inFlight   atomic.Bool
}

// NewOrchestrator wires transports behind gate. A nil gate skips the
// pre-dispatch checks.
func NewOrchestrator(t Transports, gate *credits.Gate) *Orchestrator {
	return &Orchestrator{transports: t, gate: gate}
}

// InFlight reports whether a generation is running.
func (o *Orchestrator) InFlight() bool { return o.inFlight.Load() }

// Generate checks the gate, dispatches over req.Route and returns the
// result. Every failure after input validation is a *Failure. There is no
// retry and no timeout beyond ctx.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.inFlight.Store(false)

	if len(req.Image) == 0 {
		return nil, ErrNoImage
	}
	if req.Route == nil {
		return nil, errors.New("no route selected")
	}

	prompt, err := BuildPrompt(req.Mode, req.Filters)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	route := req.Route
	logger := log.With().Str("route", route.Name()).Str("mode", string(req.Mode)).Int("filters", len(req.Filters)).Logger()

	if err := o.check(ctx, route); err != nil {
		f := NewFailure(Classify(err), route, err)
		logger.Info().Err(err).Str("kind", string(f.Kind)).Msg("Generation refused by credit gate")
		metrics.Generation(route.Name(), string(req.Mode), string(f.Kind), time.Since(start))
		return nil, f
	}

	out, err := o.Dispatch(ctx, route, Call{
		Image:    req.Image,
		MIMEType: req.MIMEType,
		Prompt:   prompt,
		Filters:  req.Filters,
		Mode:     req.Mode,
	})
	if err != nil {
		f := NewFailure(Classify(err), route, err)
		logger.Warn().Err(err).Str("kind", string(f.Kind)).Dur("duration", time.Since(start)).Msg("Generation failed")
		metrics.Generation(route.Name(), string(req.Mode), string(f.Kind), time.Since(start))
		return nil, f
	}

	if _, ok := route.(DemoRoute); ok && o.gate != nil && o.gate.Demo() != nil {
		if err := o.gate.Demo().Consume(); err != nil {
			logger.Warn().Err(err).Msg("Demo counter already empty after success")
		}
	}

	logger.Info().Int("output_bytes", len(out.Image)).Dur("duration", time.Since(start)).Msg("Generation succeeded")
	metrics.Generation(route.Name(), string(req.Mode), "success", time.Since(start))

	return &Result{
		Original:      req.Image,
		OriginalMIME:  req.MIMEType,
		Generated:     out.Image,
		GeneratedMIME: out.MIMEType,
		Prompt:        prompt,
		Route:         route.Name(),
		Credits:       out.Credits,
	}, nil
}

func (o *Orchestrator) check(ctx context.Context, route Route) error {
	if o.gate == nil {
		return nil
	}
	switch r := route.(type) {
	case DemoRoute:
		return o.gate.CheckDemo()
	case GuestRoute:
		_, err := o.gate.CheckGuest(ctx, r.Token)
		if err != nil && !errors.Is(err, credits.ErrInsufficient) {
			// The callable deducts authoritatively; an unreadable balance
			// should not block the request.
			log.Warn().Err(err).Msg("Could not read guest balance, dispatching anyway")
			return nil
		}
		return err
	case BYOKRoute:
		return nil
	}
	return fmt.Errorf("unsupported route %T", route)
}

// Dispatch sends call over the transport for route.
func (o *Orchestrator) Dispatch(ctx context.Context, route Route, call Call) (Output, error) {
	var t Transport
	switch r := route.(type) {
	case DemoRoute:
		t = o.transports.Demo
	case GuestRoute:
		t = o.transports.Guest
		call.Credential = r.Token
	case BYOKRoute:
		t = o.transports.BYOK
		call.Credential = r.APIKey
	default:
		return Output{}, fmt.Errorf("unsupported route %T", route)
	}
	if t == nil {
		return Output{}, fmt.Errorf("%s transport is not configured", route.Name())
	}
	return t.Generate(ctx, call)
}
