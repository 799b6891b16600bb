package http

import (
	"net/http"
	"time"

	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/pkg/httpx"
	"github.com/ariaauth/aria/pkg/jwtx"
)

type healthChecks struct {
	Database  string `json:"database,omitempty"`
	Ephemeral string `json:"ephemeral,omitempty"`
	Signer    string `json:"signer,omitempty"`
}

type healthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *healthChecks `json:"checks,omitempty"`
}

// LivezHandler always reports ok while the process is up.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler checks every dependency a request needs: the relational
// store, the ephemeral store, and the signing key.
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	eph store.EphemeralStore,
	keys *jwtx.KeySource,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &healthChecks{Database: "ok", Ephemeral: "ok", Signer: "ok"}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if err := eph.Ping(r.Context()); err != nil {
			checks.Ephemeral = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if _, err := keys.Public(r.Context()); err != nil {
			checks.Signer = "error: signing key unavailable"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, healthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
