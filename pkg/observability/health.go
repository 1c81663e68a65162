package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// ReadyCheck reports whether a subsystem is ready to serve.
type ReadyCheck func(ctx context.Context) error

// Check names a ReadyCheck in the readiness report.
type Check struct {
	Name  string
	Probe ReadyCheck
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthHandler answers liveness probes with 200 {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, healthReport{Status: healthStatusOK})
	})
}

// ReadyHandler runs every check and reports each outcome by name. Any
// failure answers 503.
func ReadyHandler(checks ...Check) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		report := healthReport{Status: healthStatusOK}
		code := http.StatusOK

		if len(checks) > 0 {
			report.Checks = make(map[string]string, len(checks))
		}

		for _, check := range checks {
			err := check.Probe(hr.Context())
			if err != nil {
				report.Checks[check.Name] = err.Error()
				report.Status = healthStatusUnavailable
				code = http.StatusServiceUnavailable

				continue
			}

			report.Checks[check.Name] = healthStatusOK
		}

		writeHealth(rw, code, report)
	})
}

func writeHealth(rw http.ResponseWriter, code int, report healthReport) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	_ = json.NewEncoder(rw).Encode(report)
}
