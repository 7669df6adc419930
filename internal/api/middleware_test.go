package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		want       string
	}{
		{"remote addr", nil, "192.0.2.1:54321", false, "192.0.2.1"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:443", false, "[2001:db8::1]"},
		{"no port", nil, "192.0.2.1", false, "192.0.2.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:80", true, "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:80", true, "198.51.100.4"},
		{
			"forwarded wins over real ip",
			map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.4"},
			"10.0.0.2:80",
			true,
			"203.0.113.7",
		},
		{"empty forwarded entry", map[string]string{"X-Forwarded-For": " , 10.0.0.1"}, "10.0.0.2:80", true, "10.0.0.2"},
		{"forwarded ignored without proxy", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "10.0.0.2:80", false, "10.0.0.2"},
		{"real ip ignored without proxy", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:80", false, "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r, tt.trustProxy))
		})
	}
}

func TestTiming_SetsHeaderAndStart(t *testing.T) {
	var (
		start time.Time
		ok    bool
	)
	h := timing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, ok = requestStart(r.Context())
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.False(t, start.IsZero())
	assert.True(t, strings.HasSuffix(rec.Header().Get(ResponseTimeHeader), "ms"))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequestID_LongIDsAreReplaced(t *testing.T) {
	var seen string
	h := requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(RequestIDHeader)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, strings.Repeat("a", 100))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	require.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRecoverer_RethrowsAbortHandler(t *testing.T) {
	h := recoverer(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "1.50ms", formatElapsed(1500*time.Microsecond))
	assert.Equal(t, "0.00ms", formatElapsed(0))
}
