package rest

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sareesanskriti/storefront/pkg/web"
	"golang.org/x/sync/errgroup"
)

// readyTimeout bounds one readiness round.
const readyTimeout = 2 * time.Second

// Probe is one dependency the readiness check pings.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// RegisterHealthRoutes mounts /healthz and /livez, which only prove the process
// serves HTTP, and /readyz, which runs every probe.
func RegisterHealthRoutes(r chi.Router, logger *slog.Logger, probes ...Probe) {
	logger = logger.With("component", "health")
	alive := func(w http.ResponseWriter, _ *http.Request) {
		web.RespondJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
	r.Get("/healthz", alive)
	r.Get("/livez", alive)
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checks, ready := runProbes(r.Context(), probes)
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not ready"
			logger.WarnContext(r.Context(), "Readiness check failed", "checks", checks)
		}
		web.RespondJSON(w, logger, status, map[string]any{"status": state, "checks": checks})
	})
}

func runProbes(ctx context.Context, probes []Probe) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	var mu sync.Mutex
	checks := make(map[string]string, len(probes))
	ready := true
	var g errgroup.Group
	for _, p := range probes {
		g.Go(func() error {
			result := "ok"
			if err := p.Check(ctx); err != nil {
				result = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			checks[p.Name] = result
			if result != "ok" {
				ready = false
			}
			return nil
		})
	}
	_ = g.Wait()
	return checks, ready
}
