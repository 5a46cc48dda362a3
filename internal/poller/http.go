package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// HTTPChecker issues HEAD requests against transformation URLs. Concurrent
// checks of the same URL share one request.
type HTTPChecker struct {
	client *http.Client
	group  singleflight.Group
}

// NewHTTPChecker returns a checker using client, or a client with a 30s timeout.
func NewHTTPChecker(client *http.Client) *HTTPChecker {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPChecker{client: client}
}

// Check reports Ready on any 2xx response. Transport errors and other
// statuses are Pending: the provider answers non-success while it is still
// generating. A URL that cannot form a request is Terminal.
func (c *HTTPChecker) Check(ctx context.Context, url string) Result {
	v, err, _ := c.group.Do(url, func() (any, error) {
		return c.head(ctx, url), nil
	})
	if err != nil {
		return Result{State: Pending, Err: err}
	}
	return v.(Result)
}

func (c *HTTPChecker) head(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Result{State: Terminal, Err: fmt.Errorf("poller: build request: %w", err)}
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{State: Pending, Err: fmt.Errorf("poller: head request: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{State: Ready}
	}
	return Result{State: Pending, Err: fmt.Errorf("poller: status %d", resp.StatusCode)}
}
