package ws

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// OriginChecker returns a CheckOrigin function accepting requests without an
// Origin header and those whose Origin matches one of allowed.
func OriginChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Same-origin request or non-browser client.
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(origin, a) {
				return true
			}
		}
		return false
	}
}

// NewUpgrader returns the upgrader used for every WebSocket endpoint.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     OriginChecker(allowedOrigins),
	}
}
