package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HealthURL maps a gateway address (ws, wss, http or https) to its /health
// endpoint.
func HealthURL(gateway string) (string, error) {
	u, err := url.Parse(gateway)
	if err != nil {
		return "", fmt.Errorf("invalid gateway URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "http":
		u.Scheme = "http"
	case "wss", "https":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("invalid gateway URL scheme: %q", u.Scheme)
	}
	u.Path = "/health"
	u.RawQuery = ""
	return u.String(), nil
}

// WaitForHealthy polls the gateway's /health endpoint until it answers 200 OK
// or ctx ends.
func WaitForHealthy(ctx context.Context, gateway string) error {
	healthURL, err := HealthURL(gateway)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: time.Second}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("gateway not healthy at %s: %w", healthURL, ctx.Err())
		case <-ticker.C:
		}
	}
}
