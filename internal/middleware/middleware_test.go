package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/darkden-lab/tableside/internal/auth"
)

// okHandler is a simple handler that returns 200 OK.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

func TestAuthMiddlewareRejectsMissingOrMalformedHeader(t *testing.T) {
	handler := AuthMiddleware(auth.NewJWTService("test-secret"))(okHandler)

	for _, header := range []string{"", "NotBearer token", "Bearer invalid-token"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected status 401, got %d", header, rec.Code)
		}
	}
}

func TestAuthMiddlewareValidTokenThenRequireRole(t *testing.T) {
	jwtSvc := auth.NewJWTService("test-secret")
	chain := func(h http.Handler) http.Handler {
		return AuthMiddleware(jwtSvc)(RequireRole(auth.RoleManager)(h))
	}

	var seen *auth.Claims
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	waiter, _ := jwtSvc.GenerateToken(1, "w@x.y", auth.RoleWaiter)
	manager, _ := jwtSvc.GenerateToken(2, "m@x.y", auth.RoleManager)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+waiter)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("waiter: expected 403, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+manager)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("manager: expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.StaffID != 2 {
		t.Fatalf("expected claims for staff 2 in context, got %+v", seen)
	}
}

func TestRequireRoleWithoutClaims(t *testing.T) {
	handler := RequireRole(auth.RoleWaiter)(okHandler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware_BlocksOverLimit(t *testing.T) {
	// 1 RPS with burst of 2: first 2 pass, third should be blocked.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimitMiddleware(ctx, 1, 2)(okHandler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rr.Code)
	}

	// A different client keeps its own bucket.
	req = httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.RemoteAddr = "10.0.0.2:12345"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", rr.Code)
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := newRateLimiterStore(ctx, 1, 1)

	store.limiterFor("10.0.0.1")
	start := time.Now()
	store.evictIdle(start.Add(time.Minute))
	if _, ok := store.limiters.Load("10.0.0.1"); !ok {
		t.Fatal("recently seen client should be kept")
	}

	store.evictIdle(start.Add(limiterIdleTimeout + time.Second))
	if _, ok := store.limiters.Load("10.0.0.1"); ok {
		t.Error("idle client should be evicted")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := clientIP(req); ip != "203.0.113.9" {
		t.Errorf("expected first forwarded address, got %q", ip)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.4:5555"
	if ip := clientIP(req); ip != "192.0.2.4" {
		t.Errorf("expected remote host, got %q", ip)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS([]string{"https://floor.example"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://floor.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://floor.example" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin for unknown origin: %q", got)
	}
}
