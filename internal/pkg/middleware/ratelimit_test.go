package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestConfigForRate(t *testing.T) {
	cfg := ConfigForRate(7)

	if cfg.RequestsPerSecond != 7 {
		t.Errorf("RequestsPerSecond = %v, want 7", cfg.RequestsPerSecond)
	}
	if cfg.Burst != 14 {
		t.Errorf("Burst = %d, want 14", cfg.Burst)
	}
	if cfg.CleanupInterval != time.Minute {
		t.Errorf("CleanupInterval = %v, want 1m", cfg.CleanupInterval)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 2, Burst: 2, CleanupInterval: time.Minute})
	defer rl.Stop()

	ip := "192.168.1.100"
	if !rl.Allow(ip) || !rl.Allow(ip) {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow(ip) {
		t.Error("third request should be denied")
	}

	time.Sleep(600 * time.Millisecond)
	if !rl.Allow(ip) {
		t.Error("request should be allowed after the bucket refills")
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 5, Burst: 5, CleanupInterval: time.Minute})
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Errorf("client 1 request %d denied", i)
		}
		if !rl.Allow("10.0.0.2") {
			t.Errorf("client 2 request %d denied", i)
		}
	}
	if rl.Allow("10.0.0.1") || rl.Allow("10.0.0.2") {
		t.Error("both clients should be limited")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 100, Burst: 100, CleanupInterval: time.Minute})
	defer rl.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ip := fmt.Sprintf("192.168.1.%d", n)
			for j := 0; j < 10; j++ {
				rl.Allow(ip)
			}
		}(i)
	}
	wg.Wait()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.clients) != 10 {
		t.Errorf("tracked clients = %d, want 10", len(rl.clients))
	}
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	defer rl.Stop()

	now := time.Now()
	rl.limiter("old", now.Add(-10*time.Minute))
	rl.limiter("fresh", now)

	if removed := rl.evict(now.Add(-staleAfter)); removed != 1 {
		t.Errorf("evict() removed %d, want 1", removed)
	}
	if _, ok := rl.clients["fresh"]; !ok {
		t.Error("fresh client was evicted")
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 2, Burst: 2, CleanupInterval: time.Minute})
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/hypotheses", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := send(); w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.100:12345", nil, "192.168.1.100"},
		{"ipv6 remote addr", "[2001:db8::1]:443", nil, "2001:db8::1"},
		{"no port", "192.168.1.7", nil, "192.168.1.7"},
		{"forwarded chain", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.1, 198.51.100.1"}, "203.0.113.1"},
		{"forwarded single", "10.0.0.1:1", map[string]string{"X-Forwarded-For": " 203.0.113.9 "}, "203.0.113.9"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
