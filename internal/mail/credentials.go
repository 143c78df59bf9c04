package mail

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

const (
	// HeaderAuthorization carries the server-wide bearer token.
	HeaderAuthorization = "Authorization"
	// HeaderBackendToken carries the caller's mail provider token.
	HeaderBackendToken = "Fastmail-Api-Token"
)

// Headers is the read side of a header map. http.Header satisfies it.
type Headers interface {
	Get(key string) string
}

// Credentials are the two tokens presented with a call.
type Credentials struct {
	ServerToken  string
	BackendToken string
}

// CredentialResolver validates the credentials carried by a call against the
// configured server token.
type CredentialResolver struct {
	serverToken []byte
}

// NewCredentialResolver returns a resolver that accepts serverToken.
func NewCredentialResolver(serverToken string) (*CredentialResolver, error) {
	if serverToken == "" {
		return nil, errors.New("server token must not be empty")
	}
	return &CredentialResolver{serverToken: []byte(serverToken)}, nil
}

// Resolve extracts and checks both credentials. The server token is checked
// first; the backend token is not inspected beyond presence.
func (r *CredentialResolver) Resolve(h Headers) (Credentials, error) {
	if h == nil {
		return Credentials{}, &Error{Kind: KindUnauthorized, Op: "authenticate", Msg: "Unauthorized"}
	}

	token, ok := BearerToken(h.Get(HeaderAuthorization))
	if !ok || !r.Matches(token) {
		return Credentials{}, &Error{Kind: KindUnauthorized, Op: "authenticate", Msg: "Unauthorized"}
	}

	backendToken := strings.TrimSpace(h.Get(HeaderBackendToken))
	if backendToken == "" {
		return Credentials{}, &Error{
			Kind: KindMissingBackendCredential,
			Op:   "authenticate",
			Msg:  "Fastmail API token is required in the " + strings.ToLower(HeaderBackendToken) + " header",
		}
	}

	return Credentials{ServerToken: token, BackendToken: backendToken}, nil
}

// Matches reports whether token equals the configured server token, in
// constant time.
func (r *CredentialResolver) Matches(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), r.serverToken) == 1
}

// BearerToken parses an Authorization header value of the form
// "Bearer <token>". The scheme is matched case-insensitively.
func BearerToken(authHeader string) (string, bool) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

type headersContextKey struct{}

// ContextWithHeaders attaches the transport headers of a call to ctx.
// The headers are cloned so later mutation by the transport is not observed.
func ContextWithHeaders(ctx context.Context, h http.Header) context.Context {
	return context.WithValue(ctx, headersContextKey{}, h.Clone())
}

// HeadersFromContext returns the headers attached by ContextWithHeaders, or
// an empty header map.
func HeadersFromContext(ctx context.Context) http.Header {
	if h, ok := ctx.Value(headersContextKey{}).(http.Header); ok {
		return h
	}
	return http.Header{}
}
