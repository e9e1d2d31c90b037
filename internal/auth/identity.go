package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
)

// UserHeader names the caller in local mode.
const UserHeader = "X-Redo-User"

// ErrUnauthenticated is returned when a request carries no usable identity.
var ErrUnauthenticated = errors.New("sign in required")

// Identity is the signed-in caller of a guest request.
type Identity struct {
	UserID string
	// Token is the bearer token presented, if any.
	Token string
	// Source is "jwt" or "local".
	Source string
}

// IdentityFromRequest reads the caller from the API Gateway JWT authorizer
// claims. With local set and no authorizer context, the X-Redo-User header
// or, failing that, the bearer token itself names the user.
func IdentityFromRequest(r *http.Request, local bool) (Identity, error) {
	token := BearerToken(r)

	if rc, ok := core.GetAPIGatewayV2ContextFromContext(r.Context()); ok {
		if rc.Authorizer != nil && rc.Authorizer.JWT != nil {
			if sub := rc.Authorizer.JWT.Claims["sub"]; sub != "" {
				return Identity{UserID: sub, Token: token, Source: "jwt"}, nil
			}
		}
		return Identity{}, ErrUnauthenticated
	}

	if !local {
		return Identity{}, ErrUnauthenticated
	}
	if user := strings.TrimSpace(r.Header.Get(UserHeader)); user != "" {
		return Identity{UserID: user, Token: token, Source: "local"}, nil
	}
	if token != "" {
		return Identity{UserID: token, Token: token, Source: "local"}, nil
	}
	return Identity{}, ErrUnauthenticated
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
