package auth_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenEndpointRateLimited(t *testing.T) {
	h := setupServer(t)

	form := url.Values{"grant_type": {"implicit"}}

	// the strict profile allows a burst of five from one IP
	for i := 0; i < 5; i++ {
		status, _ := h.postForm("/oauth2/v1/token", form, "", "", nil)
		require.Equal(t, http.StatusBadRequest, status)
	}

	var out struct {
		Error string `json:"error"`
	}
	status, body := h.postForm("/oauth2/v1/token", form, "", "", nil)
	require.Equal(t, http.StatusTooManyRequests, status, body)
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Equal(t, "rate_limit_exceeded", out.Error)
}

func TestRateLimitStatePerServer(t *testing.T) {
	// a fresh router carries fresh counters, so a new server is not
	// throttled by a previous one
	h := setupServer(t)
	status, _ := h.postForm("/oauth2/v1/token", url.Values{"grant_type": {"implicit"}}, "", "", nil)
	require.Equal(t, http.StatusBadRequest, status)
}
