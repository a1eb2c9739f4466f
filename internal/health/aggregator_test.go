package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// mockChecker 模拟检查器
type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status, Message: "mock", Latency: time.Millisecond}
}

// slowChecker 阻塞直到 ctx 结束
type slowChecker struct{}

func (slowChecker) Name() string { return "slow" }

func (slowChecker) Check(ctx context.Context) CheckResult {
	<-ctx.Done()
	time.Sleep(10 * time.Millisecond)
	return CheckResult{Status: StatusHealthy}
}

func TestAggregator(t *testing.T) {
	t.Run("全部健康", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"cameras", StatusHealthy},
			&mockChecker{"redis", StatusHealthy},
		)
		if status := agg.OverallStatus(context.Background()); status != StatusHealthy {
			t.Errorf("期望StatusHealthy，实际: %v", status)
		}
		if !agg.Ready(context.Background()) {
			t.Error("全部健康时应该Ready")
		}
	})

	t.Run("部分降级", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"cameras", StatusHealthy},
			&mockChecker{"mqtt", StatusDegraded},
		)
		if status := agg.OverallStatus(context.Background()); status != StatusDegraded {
			t.Errorf("期望StatusDegraded，实际: %v", status)
		}
		if !agg.Ready(context.Background()) {
			t.Error("降级状态应该仍然Ready")
		}
	})

	t.Run("部分不健康", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"mqtt", StatusDegraded},
			&mockChecker{"bluetooth", StatusUnhealthy},
		)
		if status := agg.OverallStatus(context.Background()); status != StatusUnhealthy {
			t.Errorf("期望StatusUnhealthy，实际: %v", status)
		}
		if agg.Ready(context.Background()) {
			t.Error("不健康状态不应该Ready")
		}
	})

	t.Run("动态添加检查器", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"initial", StatusHealthy})
		agg.AddChecker(&mockChecker{"added", StatusHealthy})
		if results := agg.CheckAll(context.Background()); len(results) != 2 {
			t.Errorf("期望2个结果，实际: %d", len(results))
		}
	})

	t.Run("检查超时", func(t *testing.T) {
		agg := NewAggregator(slowChecker{}, &mockChecker{"cameras", StatusHealthy})
		agg.timeout = 20 * time.Millisecond
		results := agg.CheckAll(context.Background())
		if results["slow"].Status != StatusUnhealthy {
			t.Errorf("超时应记为不健康: %+v", results["slow"])
		}
		if results["cameras"].Status != StatusHealthy {
			t.Errorf("其他检查不受影响: %+v", results["cameras"])
		}
	})
}

type sessions map[string]bool

func (s sessions) IsOnline(name string) bool { return s[name] }

func TestCameraChecker(t *testing.T) {
	cases := []struct {
		name     string
		online   sessions
		expected []string
		want     Status
	}{
		{"未配置相机", sessions{}, nil, StatusHealthy},
		{"全部在线", sessions{"A": true, "B": true}, []string{"A", "B"}, StatusHealthy},
		{"部分在线", sessions{"A": true}, []string{"A", "B"}, StatusDegraded},
		{"全部离线", sessions{}, []string{"A", "B"}, StatusUnhealthy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewCameraChecker(tc.online, tc.expected).Check(context.Background())
			if r.Status != tc.want {
				t.Errorf("status=%v want %v (%s)", r.Status, tc.want, r.Message)
			}
		})
	}
}

type adapter struct {
	powered bool
	err     error
}

func (a adapter) Powered(context.Context) (bool, error) { return a.powered, a.err }

type broker bool

func (b broker) Connected() bool { return bool(b) }

func TestBluetoothAndMQTTCheckers(t *testing.T) {
	ctx := context.Background()
	if r := NewBluetoothChecker(adapter{powered: true}).Check(ctx); r.Status != StatusHealthy {
		t.Errorf("powered adapter: %+v", r)
	}
	if r := NewBluetoothChecker(adapter{}).Check(ctx); r.Status != StatusUnhealthy {
		t.Errorf("powered off adapter: %+v", r)
	}
	if r := NewBluetoothChecker(adapter{err: errors.New("no such object")}).Check(ctx); r.Status != StatusUnhealthy {
		t.Errorf("missing adapter: %+v", r)
	}
	if r := NewMQTTChecker(broker(false)).Check(ctx); r.Status != StatusDegraded {
		t.Errorf("broker down: %+v", r)
	}
	if r := NewMQTTChecker(broker(true)).Check(ctx); r.Status != StatusHealthy {
		t.Errorf("broker up: %+v", r)
	}
}

func TestHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHTTPRoutes(r, NewAggregator(&mockChecker{"cameras", StatusUnhealthy}, &mockChecker{"mqtt", StatusDegraded}))

	for path, want := range map[string]int{
		"/health":                http.StatusServiceUnavailable,
		"/health/ready":          http.StatusServiceUnavailable,
		"/health/live":           http.StatusOK,
		"/health/checks/cameras": http.StatusServiceUnavailable,
		"/health/checks/mqtt":    http.StatusOK,
		"/health/checks/nope":    http.StatusNotFound,
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != want {
			t.Errorf("%s code=%d want %d", path, rr.Code, want)
		}
	}
}
