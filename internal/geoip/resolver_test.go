package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewResolver(Config{
		Endpoint: srv.URL,
		Timeout:  time.Second,
		Fallback: Location{Lat: 45.815, Lng: 15.9819, City: "Zagreb", Country: "Croatia"},
	})
}

// TestResolveSuccess verifies a successful external lookup.
func TestResolveSuccess(t *testing.T) {
	var requestedPath string
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		requestedPath = req.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","country":"Croatia","regionName":"Split-Dalmatia","city":"Split","lat":43.5081,"lon":16.4402}`))
	})

	loc := r.Resolve(context.Background(), "93.136.0.1")

	require.NotNil(t, loc)
	assert.Equal(t, "/93.136.0.1", requestedPath)
	assert.Equal(t, "Split", loc.City)
	assert.Equal(t, 43.5081, loc.Lat)
	assert.Equal(t, 16.4402, loc.Lng)
}

// TestResolveLoopbackShortCircuits verifies that loopback and private
// addresses return the configured fallback without any external call.
func TestResolveLoopbackShortCircuits(t *testing.T) {
	called := false
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		called = true
	})

	for _, ip := range []string{"127.0.0.1", "::1", "10.0.0.5", "192.168.1.10", "172.16.0.1", "169.254.1.1", "0.0.0.0"} {
		loc := r.Resolve(context.Background(), ip)
		require.NotNil(t, loc, ip)
		assert.Equal(t, "Zagreb", loc.City, ip)
	}
	assert.False(t, called, "non-routable addresses must not trigger external lookups")
}

// TestResolveFailureModes verifies that every failure degrades to nil
// rather than an error.
func TestResolveFailureModes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"non-success status field",
			func(w http.ResponseWriter, req *http.Request) {
				w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
			},
		},
		{
			"http error",
			func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			"malformed body",
			func(w http.ResponseWriter, req *http.Request) {
				w.Write([]byte(`{not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, tt.handler)
			assert.Nil(t, r.Resolve(context.Background(), "93.136.0.1"))
		})
	}
}

// TestResolveTimeout verifies a slow upstream is treated as unknown.
func TestResolveTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"status":"success"}`))
	}))
	t.Cleanup(srv.Close)

	r := NewResolver(Config{Endpoint: srv.URL, Timeout: 20 * time.Millisecond})

	assert.Nil(t, r.Resolve(context.Background(), "93.136.0.1"))
}

// TestResolveInvalidIP verifies garbage input is rejected locally.
func TestResolveInvalidIP(t *testing.T) {
	called := false
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) { called = true })

	assert.Nil(t, r.Resolve(context.Background(), "not-an-ip"))
	assert.False(t, called)
}
