package fetch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Browser renders the target in headless Chromium and returns the serialized
// DOM, so script-populated prices are present in the payload. The browser is
// launched lazily on first use and shared across fetches; launch failure
// fails individual fetches without poisoning the chain.
type Browser struct {
	// Bin overrides Chromium binary auto-detection, e.g. the system browser
	// inside a container image.
	Bin string
	// Timeout bounds navigation plus render. Zero means 25s.
	Timeout time.Duration
	// SettleDelay waits for late script work after the load event. Zero
	// means 2s.
	SettleDelay time.Duration

	mu        sync.Mutex
	browser   *rod.Browser
	launchErr error
	launched  bool
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) Fetch(ctx context.Context, target string) ([]byte, error) {
	br, err := b.connect()
	if err != nil {
		return nil, fmt.Errorf("browser unavailable: %w", err)
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := br.Context(ctx).Page(proto.TargetCreateTarget{URL: target})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	settle := b.SettleDelay
	if settle <= 0 {
		settle = 2 * time.Second
	}
	select {
	case <-time.After(settle):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("serialize page: %w", err)
	}
	return []byte(html), nil
}

// connect launches Chromium once; subsequent calls reuse the connection or
// repeat the stored launch error.
func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.launched {
		return b.browser, b.launchErr
	}
	b.launched = true

	l := launcher.New().Headless(true).NoSandbox(true).Leakless(false)
	bin := b.Bin
	if bin == "" {
		// System Chromium in container images; auto-detect elsewhere.
		if _, err := os.Stat("/usr/bin/chromium-browser"); err == nil {
			bin = "/usr/bin/chromium-browser"
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		b.launchErr = err
		return nil, err
	}
	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		b.launchErr = err
		return nil, err
	}
	b.browser = br
	return br, nil
}

// Close tears down the shared browser if one was launched.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		_ = b.browser.Close()
		b.browser = nil
	}
	b.launched = false
	b.launchErr = nil
}

var _ Strategy = (*Browser)(nil)
