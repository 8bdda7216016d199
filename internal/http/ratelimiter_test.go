package http

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(3, 3, time.Minute)
	t.Cleanup(rl.Stop)

	current := time.Unix(0, 0)
	rl.now = func() time.Time {
		return current
	}

	key := "1.2.3.4"

	for i := 0; i < 3; i++ {
		if !rl.Allow(key) {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
	}

	if rl.Allow(key) {
		t.Fatalf("expected fourth request to be denied")
	}

	current = current.Add(time.Second)

	if !rl.Allow(key) {
		t.Fatalf("expected request after refill to be allowed")
	}
}

func TestRateLimiterKeepsClientsIndependent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 0.001, time.Minute)
	t.Cleanup(rl.Stop)

	if !rl.Allow("a") {
		t.Fatalf("expected first request for a to be allowed")
	}
	if rl.Allow("a") {
		t.Fatalf("expected second request for a to be denied")
	}
	if !rl.Allow("b") {
		t.Fatalf("expected first request for b to be allowed")
	}
}

func TestRateLimiterPrunesIdleClients(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(2, 1, time.Minute)
	t.Cleanup(rl.Stop)

	current := time.Unix(0, 0)
	rl.now = func() time.Time {
		return current
	}

	rl.Allow("stale")
	current = current.Add(30 * time.Second)
	rl.Allow("fresh")

	current = current.Add(45 * time.Second)
	rl.pruneStale()

	if got := rl.Clients(); got != 1 {
		t.Fatalf("expected 1 tracked client after pruning, got %d", got)
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 1, time.Millisecond)
	rl.Stop()
	rl.Stop()
}

func TestClientIPFromRequest(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, remote: "192.0.2.1:1234", want: "10.0.0.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "10.0.0.9"}, remote: "192.0.2.1:1234", want: "10.0.0.9"},
		{name: "remote addr", remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "remote without port", remote: "192.0.2.7", want: "192.0.2.7"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remote
			for key, value := range tc.headers {
				req.Header.Set(key, value)
			}

			if got := clientIPFromRequest(req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
