package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// StatusError reports a non-2xx response. The service answered, so the
// failure is soft: it is still starting or misconfigured.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status=%d", e.Code)
}

type httpProber struct {
	client *http.Client
	url    string
}

// NewHTTP returns a Prober that issues GET url with client. A nil client uses
// http.DefaultClient.
func NewHTTP(client *http.Client, url string) Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpProber{client: client, url: url}
}

func (p *httpProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
