package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// proxyMinBody rejects relay responses that are too small to be a rendered
// page; relays sometimes answer 200 with an error or challenge stub.
const proxyMinBody = 1000

// Proxy relays the request through a scraping proxy service such as
// ScraperAPI, which handles IP rotation and anti-bot challenges. The relay
// endpoint takes the target address as a query parameter.
type Proxy struct {
	// BaseURL is the relay endpoint, e.g. "https://api.scraperapi.com/".
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds each relayed request. Zero means 30s; relays render
	// pages server-side and are slower than direct fetches.
	Timeout time.Duration
}

func (p *Proxy) Name() string { return "proxy" }

func (p *Proxy) Fetch(ctx context.Context, target string) ([]byte, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return nil, fmt.Errorf("proxy relay not configured")
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", p.APIKey)
	q.Set("url", target)
	u.RawQuery = q.Encode()

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	hc := p.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("relay status: %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read relay body: %w", err)
	}
	if len(b) < proxyMinBody {
		return nil, fmt.Errorf("relay body too small: %d bytes", len(b))
	}
	return b, nil
}
