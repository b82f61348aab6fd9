package boundary

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/boundary/auth"
)

// ErrUnauthorized is returned by Authorize when no configured
// authenticator accepts the request, or authentication fails outright.
var ErrUnauthorized = errors.New("boundary: caller not authenticated")

// AuthzGate is an optional inbound caller identity gate: the gateway's
// own wire protocol never specifies who may invoke it, so a host
// application that exposes Boundary behind its own transport can opt
// into restricting which callers may invoke which action on which
// provider.
// This is unrelated to adapter.AuthStrategy, which resolves outbound
// provider credentials.
type AuthzGate struct {
	authenticator auth.Authenticator
	authorizer    auth.Authorizer
}

// NewAuthzGate builds an inbound gate from a caller authenticator
// (JWT/API-key/OAuth2-introspection/composite) and an authorizer
// (typically auth.NewSimpleRBACAuthorizer). Either may be nil to skip
// that stage.
func NewAuthzGate(authenticator auth.Authenticator, authorizer auth.Authorizer) *AuthzGate {
	return &AuthzGate{authenticator: authenticator, authorizer: authorizer}
}

// Authorize authenticates the caller from req and checks whether the
// resulting identity may invoke action on provider; the endpoint is
// not part of the check. On
// success it returns a context carrying the resolved identity, for the
// caller to thread into the subsequent Get/Post/.../Paginate call.
func (g *AuthzGate) Authorize(ctx context.Context, req *auth.AuthRequest, provider, action string) (context.Context, error) {
	if g.authenticator == nil {
		return ctx, nil
	}

	result, err := g.authenticator.Authenticate(ctx, req)
	if err != nil {
		return ctx, fmt.Errorf("boundary: authentication error: %w", err)
	}
	if result == nil || !result.Authenticated {
		return ctx, ErrUnauthorized
	}

	ctx = auth.WithIdentity(ctx, result.Identity)

	if g.authorizer == nil {
		return ctx, nil
	}

	azReq := &auth.AuthzRequest{
		Subject:      result.Identity,
		Resource:     "provider:" + provider,
		Action:       action,
		ResourceType: "provider",
	}
	if err := g.authorizer.Authorize(ctx, azReq); err != nil {
		return ctx, err
	}
	return ctx, nil
}
