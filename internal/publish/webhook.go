package publish

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
	cfgpkg "github.com/taoyao-code/camera-bridge/internal/config"
)

// Webhook 以签名 HTTP POST 推送解码值
//
// 请求头:
//
//	X-Api-Key    配置的 apiKey
//	X-Timestamp  Unix 秒
//	X-Nonce      随机 8 位 hex
//	X-Signature  HMAC-SHA256(secret, canonical) 的 hex
//
// canonical = METHOD\npath\ntimestamp\nnonce\nsha256(body)
type Webhook struct {
	client   *http.Client
	endpoint string
	path     string
	apiKey   string
	secret   string
	retries  int
	backoff  []time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewWebhook client 为 nil 时使用 cfg.Timeout 的默认客户端
func NewWebhook(client *http.Client, cfg cfgpkg.WebhookConfig, logger *zap.Logger) (*Webhook, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid webhook url %q", cfg.URL)
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{
		client:   client,
		endpoint: cfg.URL,
		path:     u.Path,
		apiKey:   cfg.APIKey,
		secret:   cfg.Secret,
		retries:  cfg.Retries,
		backoff:  []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second},
		logger:   logger,
		now:      time.Now,
	}, nil
}

// SignHMAC HMAC-SHA256 签名（hex）
func SignHMAC(secret, canonical string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Canonical 待签名串
func Canonical(method, path string, ts int64, nonce string, body []byte) string {
	h := sha256.Sum256(body)
	return fmt.Sprintf("%s\n%s\n%d\n%s\n%s", strings.ToUpper(method), path, ts, nonce, hex.EncodeToString(h[:]))
}

// Send 推送一条解码值；5xx 与网络错误按退避重试，4xx 直接返回错误
func (w *Webhook) Send(ctx context.Context, camera string, v bcs.Value) error {
	ts := w.now()
	body, err := json.Marshal(Event{
		Camera:    camera,
		Kind:      v.Kind(),
		Address:   v.Address().String(),
		Timestamp: ts.UnixMilli(),
		Value:     v,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.retries; attempt++ {
		code, err := w.post(ctx, ts.Unix(), body)
		switch {
		case err == nil && code >= 200 && code < 300:
			return nil
		case err == nil && code < 500:
			return fmt.Errorf("webhook rejected: http %d", code)
		case err == nil:
			lastErr = fmt.Errorf("webhook http %d", code)
		default:
			lastErr = err
		}
		if attempt == w.retries {
			break
		}
		w.logger.Debug("webhook retry", zap.Int("attempt", attempt+1), zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff[min(attempt, len(w.backoff)-1)]):
		}
	}
	return lastErr
}

func (w *Webhook) post(ctx context.Context, ts int64, body []byte) (int, error) {
	nonce := fmt.Sprintf("%08x", rand.Uint32())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", w.apiKey)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Nonce", nonce)
	req.Header.Set("X-Signature", SignHMAC(w.secret, Canonical(http.MethodPost, w.path, ts, nonce, body)))

	resp, err := w.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		return 0, fmt.Errorf("webhook post: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
