package food

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxResponseBytes = 4 << 20

// StatusError is a non-2xx response from a catalog upstream.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// fetcher performs GET requests against catalog upstreams, retrying
// network errors, 429 and 5xx responses.
type fetcher struct {
	client     *http.Client
	maxTries   uint
	newBackOff func() backoff.BackOff
}

func newFetcher(client *http.Client) *fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &fetcher{
		client:   client,
		maxTries: 3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 300 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

func (f *fetcher) getJSON(ctx context.Context, url string, out any) error {
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "nutrilog/1.0")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, &StatusError{Status: resp.StatusCode, Body: truncate(string(b), 200)}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, backoff.Permanent(&StatusError{Status: resp.StatusCode, Body: truncate(string(b), 200)})
		}
		return b, nil
	}, backoff.WithBackOff(f.newBackOff()), backoff.WithMaxTries(f.maxTries))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
