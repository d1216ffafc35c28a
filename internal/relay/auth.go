package relay

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// Credential sources, in the order they are tried. Logged on rejection so a
// misconfigured client can be debugged; the token value itself never is.
const (
	sourceQuery       = "query"
	sourceHeader      = "authorization header"
	sourceSubprotocol = "subprotocol"
	sourceNone        = "none"
)

// bearerToken extracts the handshake credential from the upgrade request.
// First non-empty match wins: the `token` query parameter, then an
// `Authorization: Bearer` header, then a `Sec-WebSocket-Protocol: bearer,
// <token>` pair for browser clients that cannot set headers.
func bearerToken(r *http.Request) (token, source string) {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t, sourceQuery
	}

	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if t := strings.TrimSpace(parts[1]); t != "" {
				return t, sourceHeader
			}
		}
	}

	protos := websocket.Subprotocols(r)
	for i, p := range protos {
		if strings.EqualFold(p, "bearer") && i+1 < len(protos) {
			if t := strings.TrimSpace(protos[i+1]); t != "" {
				return t, sourceSubprotocol
			}
		}
	}

	return "", sourceNone
}

// originChecker builds the upgrade origin policy from a comma-separated
// allow-list. "*" keeps the permissive default; requests without an Origin
// header (non-browser clients) are always allowed.
func originChecker(allowed string) func(*http.Request) bool {
	allowed = strings.TrimSpace(allowed)
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}

	list := strings.Split(allowed, ",")
	for i := range list {
		list[i] = strings.TrimRight(strings.TrimSpace(list[i]), "/")
	}

	return func(r *http.Request) bool {
		origin := strings.TrimRight(r.Header.Get("Origin"), "/")
		if origin == "" {
			return true
		}
		for _, a := range list {
			if strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
