package httpx

import (
	"net/http"
	"testing"
	"time"

	"github.com/splax/teamboard/internal/service/servicetest"
	"github.com/splax/teamboard/pkg/config"
)

func TestWindowCounterResetsAfterWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := newWindowCounter(func() time.Time { return now })
	defer c.Close()

	for i := 1; i <= 2; i++ {
		if d := c.Allow("k", 2, time.Minute); !d.allowed || d.count != i {
			t.Fatalf("hit %d: %+v", i, d)
		}
	}
	if d := c.Allow("k", 2, time.Minute); d.allowed {
		t.Fatalf("third hit allowed: %+v", d)
	}
	if d := c.Allow("other", 2, time.Minute); !d.allowed {
		t.Fatalf("keys must not share windows: %+v", d)
	}

	now = now.Add(time.Minute)
	if d := c.Allow("k", 2, time.Minute); !d.allowed || d.count != 1 {
		t.Fatalf("window did not reset: %+v", d)
	}
	c.sweep()
	if _, ok := c.windows["other"]; ok {
		t.Fatalf("expired window kept after sweep")
	}
}

func TestClassifyByMethod(t *testing.T) {
	cases := map[string]rateClass{
		http.MethodGet:    rateClassRead,
		http.MethodHead:   rateClassRead,
		http.MethodPost:   rateClassWrite,
		http.MethodPut:    rateClassWrite,
		http.MethodPatch:  rateClassWrite,
		http.MethodDelete: rateClassWrite,
	}
	for method, want := range cases {
		if got := classify(method); got != want {
			t.Fatalf("%s: got %s want %s", method, got, want)
		}
	}
}

func TestMutationsHaveTheirOwnBudget(t *testing.T) {
	rf := newRouterFixture(t, config.APIConfig{RateLimitPerMinute: 1, RateLimitWritesPerMinute: 1})
	tasksPath := "/projects/" + rf.fx.ProjectID + "/tasks"

	if rr := rf.do(t, servicetest.Member, http.MethodGet, tasksPath, nil); rr.Code != http.StatusOK {
		t.Fatalf("first read: %d", rr.Code)
	}
	expectError(t, rf.do(t, servicetest.Member, http.MethodGet, tasksPath, nil), http.StatusTooManyRequests, "rate_limited")

	rr := rf.do(t, servicetest.Member, http.MethodPost, tasksPath, map[string]string{"name": "Wire encoders"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("write blocked by the read budget: %d %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Fatalf("unexpected limit header %q", got)
	}
	expectError(t, rf.do(t, servicetest.Member, http.MethodPost, tasksPath, map[string]string{"name": "Again"}), http.StatusTooManyRequests, "rate_limited")
}
