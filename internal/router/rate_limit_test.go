package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"username":" Test@Example.com "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("username")(c)
	if key != "test@example.com|1.2.3.4" {
		t.Fatalf("key want test@example.com|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Test@Example.com") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestKeyByTenantAndIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	var got string
	r.GET("/public/:tenant/menus", func(c *gin.Context) {
		got = KeyByTenantAndIP(c)
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/public/Bistro/menus", nil)
	req.RemoteAddr = "5.6.7.8:1234"
	r.ServeHTTP(w, req)

	if got != "bistro|5.6.7.8" {
		t.Fatalf("key want bistro|5.6.7.8 got %s", got)
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

type fakeCounter struct {
	counts map[string]int64
	ttl    time.Duration
	err    error
}

func (f *fakeCounter) Hit(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.counts[key]++
	return f.counts[key], f.ttl, nil
}

func newLimitedEngine(counter windowCounter, rule RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rateLimit(counter, rule, KeyByIP))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}, ttl: 42 * time.Second}
	r := newLimitedEngine(counter, RateLimitRule{Prefix: "cn:rate:test", WindowSeconds: 60, MaxRequests: 2})

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "9.9.9.9:1000"
		r.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence: %v", codes)
	}
	if last.Header().Get("Retry-After") != "42" {
		t.Fatalf("retry-after want 42 got %q", last.Header().Get("Retry-After"))
	}
	if counter.counts["cn:rate:test:9.9.9.9"] != 3 {
		t.Fatalf("counter key mismatch: %v", counter.counts)
	}
}

func TestRateLimitFailOpenAndClosed(t *testing.T) {
	broken := &fakeCounter{err: errors.New("redis down")}

	w := httptest.NewRecorder()
	newLimitedEngine(broken, RateLimitRule{WindowSeconds: 60, MaxRequests: 1, FailOpen: true}).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("fail-open should pass, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	newLimitedEngine(broken, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("fail-closed should reject with 500, got %d", w.Code)
	}
}

func TestKeyByIPAndJSONFieldIgnoresNonString(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username": 12}`))
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if key := KeyByIPAndJSONField("username")(c); key != "1.2.3.4" {
		t.Fatalf("non-string field should fall back to ip, got %s", key)
	}
}
