package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"authgate/pkg/platform/httputil"
)

// CheckFunc reports whether one dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Response is the body of the health endpoint.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Router serves GET / with the result of all checks. Any failing check turns
// the response into 503.
func Router(checks map[string]CheckFunc, timeout time.Duration) http.Handler {
	routes := &healthRoutes{checks: checks, timeout: timeout}
	r := chi.NewRouter()
	r.Get("/", routes.getHealth)
	return r
}

type healthRoutes struct {
	checks  map[string]CheckFunc
	timeout time.Duration
}

func (h *healthRoutes) getHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(names))
		healthy = true
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		check := h.checks[name]
		g.Go(func() error {
			status := "ok"
			if err := check(gctx); err != nil {
				status = "unavailable"
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = status
			if status != "ok" {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()

	if !healthy {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, Response{Status: "unavailable", Checks: results})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok", Checks: results})
}
