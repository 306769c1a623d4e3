package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyByIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	keys := map[string]string{}

	r := gin.New()
	r.GET("/anon", func(c *gin.Context) { keys["anon"] = KeyByIdentity()(c) })
	r.GET("/children/:childId/status", func(c *gin.Context) { keys["child"] = KeyByIdentity()(c) })
	r.GET("/parent/children/:childId", func(c *gin.Context) {
		c.Set(ctxKeyParentID, "p1")
		keys["parent"] = KeyByIdentity()(c)
	})

	for _, path := range []string{"/anon", "/children/c1/status", "/parent/children/c1"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if keys["anon"] != "ip:203.0.113.9" {
		t.Fatalf("anon key = %q", keys["anon"])
	}
	if keys["child"] != "child:c1" {
		t.Fatalf("child key = %q", keys["child"])
	}
	if keys["parent"] != "parent:p1" {
		t.Fatalf("parent key = %q", keys["parent"])
	}
}

func TestNewRateLimiter_BurstCoercion_AndVisitorReuse(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, nil)
	if rl.burst != 1 || rl.keyFn == nil {
		t.Fatalf("defaults not applied: burst=%d", rl.burst)
	}
	lim := rl.getVisitor("k1")
	if got := rl.getVisitor("k1"); got != lim {
		t.Fatalf("expected limiter reuse")
	}
}

func TestRateLimiter_getVisitor_GC(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, nil)
	rl.ttl = time.Nanosecond

	rl.mu.Lock()
	rl.visitors["old"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: time.Now().Add(-time.Hour)}
	rl.cleanupN = 4999
	rl.mu.Unlock()

	_ = rl.getVisitor("new")

	rl.mu.Lock()
	_, existsOld := rl.visitors["old"]
	_, existsNew := rl.visitors["new"]
	rl.mu.Unlock()
	if existsOld || !existsNew {
		t.Fatalf("old=%v new=%v", existsOld, existsNew)
	}
}

func TestRateLimiter_SeparateBucketsPerChild(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.001, 1, KeyByIdentity())

	r := gin.New()
	r.Use(RequestID(), rl.Handler())
	r.POST("/children/:childId/heartbeat", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(child string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/children/"+child+"/heartbeat", nil))
		return w
	}

	if w := do("a"); w.Code != http.StatusOK {
		t.Fatalf("first a = %d", w.Code)
	}
	w := do("a")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("second a = %d retry=%q", w.Code, w.Header().Get("Retry-After"))
	}
	body := decodeBody(t, w)
	if body["code"] != "too_many_requests" || body["request_id"] == "" {
		t.Fatalf("body = %v", body)
	}
	if w := do("b"); w.Code != http.StatusOK {
		t.Fatalf("child b starved by child a: %d", w.Code)
	}
}

func TestRateLimiter_ReplayBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.001, 1, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Replay") != "" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Replay", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("replay should bypass the limiter, got %d", w.Code)
	}
}

func TestIsRateBypass_NonBool(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if IsRateBypass(c) {
		t.Fatalf("default should be false")
	}
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatalf("non-bool should read as false")
	}
}
