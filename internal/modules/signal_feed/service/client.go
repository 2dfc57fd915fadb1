package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"

	"mirror_bot/internal/models"
	"mirror_bot/internal/modules/config"
	"mirror_bot/internal/normalizer"
	"mirror_bot/pkg/logger"
)

const defaultAccountTotalsURL = "https://nof1.ai/api/account-totals"

var positionsPath = regexp.MustCompile(`(/api/)positions(\?.*)?$`)

// Client фид NOF1: сначала account-totals во всех вариантах адреса, потом устаревший /positions.
type Client struct {
	positionsURL     string
	accountTotalsURL string
	authToken        string

	http *http.Client
}

func NewClient(cfg *config.Config) *Client {
	feed := cfg.Feed

	connect := feed.ConnectTimeout
	if connect <= 0 {
		connect = 2 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connect}).DialContext

	totals := strings.TrimSpace(feed.AccountTotalsURL)
	if totals == "" {
		totals = defaultAccountTotalsURL
	}

	return &Client{
		positionsURL:     strings.TrimSpace(feed.PositionsURL),
		accountTotalsURL: totals,
		authToken:        strings.TrimSpace(feed.AuthToken),
		http:             &http.Client{Timeout: feed.Timeout, Transport: transport},
	}
}

// CandidateURLs адреса account-totals в порядке опроса, без повторов.
func (c *Client) CandidateURLs() []string {
	var base []string
	if c.accountTotalsURL != "" {
		base = append(base, c.accountTotalsURL)
	}
	if c.positionsURL != "" && positionsPath.MatchString(c.positionsURL) {
		base = append(base,
			positionsPath.ReplaceAllString(c.positionsURL, "${1}account_totals${2}"),
			positionsPath.ReplaceAllString(c.positionsURL, "${1}account-totals${2}"),
		)
	}

	var variants []string
	for _, u := range base {
		variants = append(variants, u)
		if i := strings.IndexByte(u, '?'); i >= 0 {
			variants = append(variants, u[:i])
		} else {
			variants = append(variants, u)
		}
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	for _, u := range variants {
		u = strings.TrimSpace(u)
		add(u)
		add(strings.TrimRight(u, "/") + "/")
	}

	if len(out) == 0 {
		out = []string{defaultAccountTotalsURL, defaultAccountTotalsURL + "/"}
	}
	return out
}

// Fetch первый кандидат, давший непустые блоки. Ошибка — только если ни один адрес не ответил 2xx.
func (c *Client) Fetch(ctx context.Context) ([]models.ModelBlock, error) {
	urls := c.CandidateURLs()
	if c.positionsURL != "" {
		urls = append(urls, c.positionsURL)
	}

	var (
		errs    error
		reached bool
	)
	for _, u := range urls {
		status, body, err := c.get(ctx, u)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if status/100 != 2 {
			continue
		}
		reached = true

		blocks, shape := normalizer.NormalizeNamed(body)
		if len(blocks) > 0 {
			logger.Debug("[FEED] %s: %d blocks (%s)", u, len(blocks), shape)
			return blocks, nil
		}
	}

	if !reached && errs != nil {
		return nil, fmt.Errorf("feed unreachable: %w", errs)
	}
	return nil, nil
}

func (c *Client) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("feed new request %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("feed get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("feed read %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}
