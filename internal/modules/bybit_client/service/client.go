package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"mirror_bot/internal/modules/config"
	"mirror_bot/pkg/logger"
)

// Client REST-клиент Bybit v5 (unified, linear perpetuals).
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	category   string
	recvWindow string

	http    *http.Client
	limiter *rate.Limiter
	now     func() time.Time

	// запросы к бирже строго по одному: раннер и команды Telegram не пересекаются
	mu sync.Mutex
}

func NewClient(cfg *config.Config) *Client {
	ex := cfg.Exchange

	rps := ex.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	recv := ex.RecvWindow
	if recv <= 0 {
		recv = 5000
	}
	category := ex.Category
	if category == "" {
		category = "linear"
	}

	return &Client{
		baseURL:    strings.TrimRight(ex.BaseURL, "/"),
		apiKey:     ex.APIKey,
		apiSecret:  ex.APISecret,
		category:   category,
		recvWindow: strconv.Itoa(recv),
		http:       &http.Client{Timeout: ex.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		now:        time.Now,
	}
}

type envelope[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
}

// sign hex(HMAC_SHA256(timestamp + key + recv_window + payload, secret)).
// payload — query string для GET и тело JSON для POST.
func (c *Client) sign(ts, payload string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts + c.apiKey + c.recvWindow + payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) setAuth(req *http.Request, payload string) {
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	req.Header.Set("X-BAPI-API-KEY", c.apiKey)
	req.Header.Set("X-BAPI-SIGN", c.sign(ts, payload))
	req.Header.Set("X-BAPI-SIGN-TYPE", "2")
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", c.recvWindow)
}

// get query кодируется url.Values.Encode — ключи отсортированы, та же строка уходит в подпись.
func get[T any](ctx context.Context, c *Client, op, path string, query url.Values, signed bool) (T, error) {
	var zero T

	qs := query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+qs, nil)
	if err != nil {
		return zero, fmt.Errorf("%s new request: %w", op, err)
	}
	if signed {
		c.setAuth(req, qs)
	}
	return do[T](c, req, op)
}

func post[T any](ctx context.Context, c *Client, op, path string, body any) (T, error) {
	var zero T

	payload, err := sonic.Marshal(body)
	if err != nil {
		return zero, fmt.Errorf("%s marshal: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return zero, fmt.Errorf("%s new request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req, string(payload))
	return do[T](c, req, op)
}

func do[T any](c *Client, req *http.Request, op string) (T, error) {
	var zero T

	if err := c.limiter.Wait(req.Context()); err != nil {
		return zero, fmt.Errorf("%s rate limit: %w", op, err)
	}

	status, data, err := c.roundTrip(req)
	if err != nil {
		return zero, fmt.Errorf("%s %w", op, err)
	}
	if status/100 != 2 {
		return zero, fmt.Errorf("%s http %d: %s", op, status, truncate(data, 300))
	}

	var env envelope[T]
	if err := sonic.Unmarshal(data, &env); err != nil {
		return zero, fmt.Errorf("%s decode: %w RAW=%s", op, err, truncate(data, 300))
	}
	if env.RetCode != 0 {
		return zero, &APIError{Op: op, RetCode: env.RetCode, RetMsg: env.RetMsg}
	}
	logger.Debug("[BYBIT] %s ok", op)
	return env.Result, nil
}

func (c *Client) roundTrip(req *http.Request) (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read: %w", err)
	}
	return resp.StatusCode, data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
