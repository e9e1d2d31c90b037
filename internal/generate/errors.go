package generate

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/fpang/redo-ai/internal/chat"
	"github.com/fpang/redo-ai/internal/credits"
)

var (
	// ErrBusy is returned when a generation is already in flight.
	ErrBusy = errors.New("a generation is already in progress")
	// ErrNoFilters is returned when no filter is selected.
	ErrNoFilters = errors.New("select at least one filter")
	// ErrNoImage is returned when no source photo was supplied.
	ErrNoImage = errors.New("upload a photo first")
)

// Kind is the user-facing failure category.
type Kind string

const (
	KindInvalidKey       Kind = "invalid_key"
	KindPermissionDenied Kind = "permission_denied"
	KindQuotaExceeded    Kind = "quota_exceeded"
	KindContentBlocked   Kind = "content_blocked"
	KindUnknown          Kind = "unknown"
)

// ParseKind maps a wire code back to a Kind. Unrecognised codes are unknown.
func ParseKind(code string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(code))); k {
	case KindInvalidKey, KindPermissionDenied, KindQuotaExceeded, KindContentBlocked:
		return k
	case "resource-exhausted", "resource_exhausted", "insufficient_credits":
		return KindQuotaExceeded
	case "permission-denied":
		return KindPermissionDenied
	}
	return KindUnknown
}

// CallableError is a structured failure returned by the guest callable.
type CallableError struct {
	Code    string
	Message string
	Status  int
}

func (e *CallableError) Error() string {
	if e.Message == "" {
		return "guest callable failed: " + e.Code
	}
	return "guest callable failed: " + e.Code + ": " + e.Message
}

// Classify maps a transport error to a Kind. Structured information wins:
// our own typed errors, then the SDK's APIError code and status. Matching
// on the message text is the last resort.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	var ce *CallableError
	if errors.As(err, &ce) {
		return ParseKind(ce.Code)
	}
	var blocked *chat.BlockedError
	if errors.As(err, &blocked) {
		return KindContentBlocked
	}
	if errors.Is(err, credits.ErrInsufficient) || errors.Is(err, credits.ErrDemoExhausted) {
		return KindQuotaExceeded
	}
	if apiErr, ok := asAPIError(err); ok {
		if k := classifyAPIError(apiErr); k != KindUnknown {
			return k
		}
	}
	return classifyMessage(err.Error())
}

// The SDK has returned APIError both by value and by pointer across
// releases.
func asAPIError(err error) (genai.APIError, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return *p, true
	}
	return genai.APIError{}, false
}

func classifyAPIError(e genai.APIError) Kind {
	// An invalid key is reported as 400 INVALID_ARGUMENT with the reason only
	// in the message, so check the text before the status.
	if k := classifyMessage(e.Message); k == KindInvalidKey {
		return k
	}
	switch strings.ToUpper(e.Status) {
	case "PERMISSION_DENIED":
		return KindPermissionDenied
	case "RESOURCE_EXHAUSTED":
		return KindQuotaExceeded
	case "UNAUTHENTICATED":
		return KindInvalidKey
	}
	switch e.Code {
	case http.StatusUnauthorized:
		return KindInvalidKey
	case http.StatusForbidden:
		return KindPermissionDenied
	case http.StatusTooManyRequests:
		return KindQuotaExceeded
	}
	return classifyMessage(e.Message)
}

func classifyMessage(msg string) Kind {
	upper := strings.ToUpper(msg)
	switch {
	case strings.Contains(upper, "API_KEY_INVALID"),
		strings.Contains(upper, "API KEY NOT VALID"),
		strings.Contains(upper, "INVALID API KEY"):
		return KindInvalidKey
	case strings.Contains(upper, "PERMISSION_DENIED"):
		return KindPermissionDenied
	case strings.Contains(upper, "QUOTA_EXCEEDED"),
		strings.Contains(upper, "RESOURCE_EXHAUSTED"):
		return KindQuotaExceeded
	// Only the model's safety wording; proxies say "blocked" too.
	case strings.Contains(upper, "SAFETY"),
		strings.Contains(upper, "PROHIBITED_CONTENT"),
		strings.Contains(upper, "BLOCKLIST"),
		strings.Contains(upper, "BLOCKREASON"),
		strings.Contains(upper, "BLOCK_REASON"),
		strings.Contains(upper, "CONTENT_BLOCKED"):
		return KindContentBlocked
	}
	return KindUnknown
}

// User-facing messages.
const (
	MsgInvalidKey       = "Your API key is not valid. Check the key in settings and try again."
	MsgPermissionDenied = "Your API key cannot use the image model. Enable billing for the key's Google Cloud project, then try again."
	MsgInsufficient     = "You have run out of credits. Buy a credit pack to keep transforming photos."
	MsgDailyQuota       = "Your API key has reached its daily quota. Try again tomorrow or use a different key."
	MsgDemoExhausted    = "You have used all free demo transformations. Sign in to keep going."
	MsgContentBlocked   = "This photo was blocked by the safety filter. Try a different photo or fewer filters."
	MsgUnknown          = "Something went wrong while transforming your photo. Please try again."
)

// Failure is what the editor shows after a failed generation. The raw
// cause is kept for logs only.
type Failure struct {
	Kind        Kind
	Route       string
	Message     string
	OpenPaywall bool
	Err         error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure builds the failure for kind on route. Quota is the one kind
// whose meaning depends on the route: a guest is out of credits and is sent
// to the paywall, a BYOK user hit their key's daily quota.
func NewFailure(kind Kind, route Route, err error) *Failure {
	f := &Failure{Kind: kind, Route: route.Name(), Err: err}
	switch kind {
	case KindInvalidKey:
		f.Message = MsgInvalidKey
	case KindPermissionDenied:
		f.Message = MsgPermissionDenied
	case KindQuotaExceeded:
		switch route.(type) {
		case GuestRoute:
			f.Message = MsgInsufficient
			f.OpenPaywall = true
		case BYOKRoute:
			f.Message = MsgDailyQuota
		case DemoRoute:
			f.Message = MsgDemoExhausted
		}
	case KindContentBlocked:
		f.Message = MsgContentBlocked
	default:
		f.Kind = KindUnknown
		f.Message = MsgUnknown
	}
	return f
}
