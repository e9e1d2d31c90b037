// Package generate turns a filter selection into a generation request,
// dispatches it over exactly one transport and folds every failure into a
// small taxonomy the editor can branch on.
package generate

// Route is the transport a request goes over. It is a closed union: the
// only implementations are DemoRoute, GuestRoute and BYOKRoute.
type Route interface {
	// Name is the stable label used in logs and metrics.
	Name() string
	isRoute()
}

// Route names.
const (
	RouteDemo  = "demo"
	RouteGuest = "guest"
	RouteBYOK  = "byok"
)

// DemoRoute uses the server-configured demo key, limited by the local demo
// counter.
type DemoRoute struct{}

// GuestRoute goes through the server-side generate callable, which owns the
// shared key and deducts credits. Token identifies the signed-in user.
type GuestRoute struct {
	Token string
}

// BYOKRoute calls the model directly with the user's own key. It is not
// limited by credits.
type BYOKRoute struct {
	APIKey string
}

func (DemoRoute) Name() string  { return RouteDemo }
func (GuestRoute) Name() string { return RouteGuest }
func (BYOKRoute) Name() string  { return RouteBYOK }

func (DemoRoute) isRoute()  {}
func (GuestRoute) isRoute() {}
func (BYOKRoute) isRoute()  {}

// SessionState is what the editor knows about the user when Generate is
// pressed.
type SessionState struct {
	// UserAPIKey is the user's own Gemini key, if they saved one.
	UserAPIKey string
	// GuestToken is the signed-in user's ID token, if signed in.
	GuestToken string
}

// Select picks the route for one request. A saved personal key wins, then a
// signed-in session; everyone else is on the demo.
func Select(s SessionState) Route {
	switch {
	case s.UserAPIKey != "":
		return BYOKRoute{APIKey: s.UserAPIKey}
	case s.GuestToken != "":
		return GuestRoute{Token: s.GuestToken}
	}
	return DemoRoute{}
}
