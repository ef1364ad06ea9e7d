// Package market fetches live prices from the Yahoo Finance chart API.
package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

var ErrNoPrice = errors.New("no market price in response")

type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(hc *http.Client, baseURL string) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: hc, baseURL: baseURL}
}

// Price returns the regular market price and its currency for symbol.
func (c *Client) Price(ctx context.Context, symbol string) (float64, string, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, "", err
	}
	// Yahoo rejects requests without a browser-like agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) devpro")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("fetch chart: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, "", fmt.Errorf("read chart: %w", err)
	}

	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return 0, "", fmt.Errorf("chart %s: %s", symbol, desc.String())
	}
	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("chart %s: unexpected status %s", symbol, resp.Status)
	}

	meta := gjson.GetBytes(body, "chart.result.0.meta")
	price := meta.Get("regularMarketPrice")
	if !price.Exists() {
		return 0, "", fmt.Errorf("chart %s: %w", symbol, ErrNoPrice)
	}

	return price.Float(), meta.Get("currency").String(), nil
}
