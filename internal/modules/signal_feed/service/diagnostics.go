package service

import (
	"context"
	"unicode/utf8"
)

const diagBodyLimit = 500

// Probe результат одного запроса при диагностике.
type Probe struct {
	URL    string
	Status int
	Body   string
}

// Diagnostics опрашивает все адреса и возвращает статусы с обрезанными телами.
// Второе значение — устаревший positions, nil если адрес не задан.
func (c *Client) Diagnostics(ctx context.Context) ([]Probe, *Probe) {
	probes := make([]Probe, 0, len(c.CandidateURLs()))
	for _, u := range c.CandidateURLs() {
		probes = append(probes, c.probe(ctx, u))
	}
	if c.positionsURL == "" {
		return probes, nil
	}
	p := c.probe(ctx, c.positionsURL)
	return probes, &p
}

func (c *Client) probe(ctx context.Context, url string) Probe {
	status, body, err := c.get(ctx, url)
	if err != nil {
		return Probe{URL: url, Status: status, Body: err.Error()}
	}
	return Probe{URL: url, Status: status, Body: short(string(body), diagBodyLimit)}
}

func short(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "…"
}
