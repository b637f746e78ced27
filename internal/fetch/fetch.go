package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Strategy is one mechanism for retrieving a remote payload: a proxy relay,
// a headless-browser render, or a direct request.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, target string) ([]byte, error)
}

// ErrExhausted is returned when every applicable strategy failed for a target.
// Transport errors never escape the chain in any other form.
var ErrExhausted = errors.New("all fetch strategies failed")

// Payload is the outcome of a successful fetch, tagged with the strategy that
// produced it.
type Payload struct {
	Body     []byte
	Strategy string
}

// Chain evaluates strategies in fixed priority order - proxy relay, browser
// render, direct request - and short-circuits on the first success. Any nil
// strategy slot is skipped.
type Chain struct {
	Proxy   Strategy
	Browser Strategy
	Direct  Strategy

	// HeavyHost reports whether the expensive tiers (proxy, browser) should
	// be attempted for a host. Nil means every host uses the full chain.
	HeavyHost func(host string) bool
}

// Fetch runs the chain. Each strategy failure is logged and swallowed; if all
// strategies fail the returned error wraps ErrExhausted with the last cause.
func (c *Chain) Fetch(ctx context.Context, target string) (Payload, error) {
	host := hostOf(target)
	heavy := c.HeavyHost == nil || c.HeavyHost(host)

	var lastErr error
	for _, s := range c.ordered(heavy) {
		if s == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Payload{}, fmt.Errorf("%w: %w", ErrExhausted, err)
		}
		body, err := s.Fetch(ctx, target)
		if err == nil {
			return Payload{Body: body, Strategy: s.Name()}, nil
		}
		lastErr = err
		log.Debug().Err(err).Str("strategy", s.Name()).Str("host", host).Msg("fetch strategy failed")
	}
	if lastErr == nil {
		lastErr = errors.New("no strategies configured")
	}
	return Payload{}, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

func (c *Chain) ordered(heavy bool) []Strategy {
	if heavy {
		return []Strategy{c.Proxy, c.Browser, c.Direct}
	}
	return []Strategy{c.Direct}
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Host)
}
