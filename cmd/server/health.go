package main

import (
	"context"
	"net/http"
	"time"

	"github.com/darkden-lab/tableside/internal/httputil"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type connCounter interface {
	Count() int
}

type healthResponse struct {
	Status      string            `json:"status"`
	Connections int               `json:"connections"`
	Checks      map[string]string `json:"checks"`
}

// newHealthHandler reports liveness of the database and cache along with the
// number of open waiter connections.
func newHealthHandler(conns connCounter, database, store pinger) http.Handler {
	deps := map[string]pinger{"database": database, "cache": store}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{
			Status:      "ok",
			Connections: conns.Count(),
			Checks:      make(map[string]string, len(deps)),
		}
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	})
}
