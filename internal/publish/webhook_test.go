package publish

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
)

func TestSignHMAC(t *testing.T) {
	// 固定输入得到固定签名
	a := SignHMAC("secret", "POST\n/hook\n1\nabc\n00")
	b := SignHMAC("secret", "POST\n/hook\n1\nabc\n00")
	c := SignHMAC("other", "POST\n/hook\n1\nabc\n00")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func newTestWebhook(t *testing.T, url string, retries int) *Webhook {
	t.Helper()
	w, err := NewWebhook(nil, cfgpkg.WebhookConfig{URL: url, APIKey: "k1", Secret: "s1", Retries: retries}, zap.NewNop())
	require.NoError(t, err)
	w.backoff = []time.Duration{time.Millisecond}
	w.now = func() time.Time { return time.Unix(1700000000, 0) }
	return w
}

func TestWebhook_SendSigned(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ts, _ := strconv.ParseInt(r.Header.Get("X-Timestamp"), 10, 64)
		want := SignHMAC("s1", Canonical(r.Method, r.URL.Path, ts, r.Header.Get("X-Nonce"), body))
		if r.Header.Get("X-Api-Key") != "k1" || r.Header.Get("X-Signature") != want {
			rw.WriteHeader(http.StatusUnauthorized)
			return
		}
		var raw map[string]json.RawMessage
		_ = json.Unmarshal(body, &raw)
		_ = json.Unmarshal(raw["camera"], &got.Camera)
		_ = json.Unmarshal(raw["address"], &got.Address)
		_ = json.Unmarshal(raw["timestamp"], &got.Timestamp)
		rw.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := newTestWebhook(t, srv.URL+"/hook", 0)
	require.NoError(t, w.Send(context.Background(), "A", bcs.Gain{DB: 6}))
	assert.Equal(t, "A", got.Camera)
	assert.Equal(t, bcs.AddrGain.String(), got.Address)
	assert.Equal(t, int64(1700000000000), got.Timestamp)
}

func TestWebhook_Retry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			rw.WriteHeader(http.StatusBadGateway)
			return
		}
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := newTestWebhook(t, srv.URL, 3)
	require.NoError(t, w.Send(context.Background(), "A", bcs.Gain{DB: 0}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhook_Errors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/bad" {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		rw.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	// 4xx 不重试
	err := newTestWebhook(t, srv.URL+"/bad", 3).Send(context.Background(), "A", bcs.Gain{})
	assert.ErrorContains(t, err, "http 400")
	assert.Equal(t, int32(1), calls.Load())

	// 5xx 重试耗尽
	calls.Store(0)
	err = newTestWebhook(t, srv.URL+"/down", 2).Send(context.Background(), "A", bcs.Gain{})
	assert.ErrorContains(t, err, "http 503")
	assert.Equal(t, int32(3), calls.Load())

	_, err = NewWebhook(nil, cfgpkg.WebhookConfig{URL: "not a url"}, nil)
	assert.Error(t, err)
}
