package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name     string
	Check    func(context.Context) error
	Optional bool
}

type probeResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz reports liveness only; it never touches dependencies.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, probeResult{Status: "ok"})
}

// Readyz runs all checks concurrently, each bounded by timeout. A failing
// optional check is reported but does not flip the status to unavailable.
func Readyz(timeout time.Duration, checks ...ReadyCheck) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		res := probeResult{Status: "ok", Checks: map[string]string{}}
		var (
			mu     sync.Mutex
			wg     sync.WaitGroup
			failed bool
		)
		for _, check := range checks {
			if check.Check == nil {
				continue
			}
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			wg.Add(1)
			go func(check ReadyCheck, name string) {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(r.Context(), timeout)
				err := check.Check(ctx)
				cancel()

				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					res.Checks[name] = "ok"
					return
				}
				res.Checks[name] = err.Error()
				if !check.Optional {
					failed = true
				}
			}(check, name)
		}
		wg.Wait()

		status := http.StatusOK
		if failed {
			res.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		writeProbe(w, status, res)
	}
}

func writeProbe(w http.ResponseWriter, status int, res probeResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}
