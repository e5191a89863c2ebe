// Package upload ships recorded surveys to remote collectors.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/taigrr/iwls/types"
)

// Sink receives batches of survey records.
type Sink interface {
	Send(ctx context.Context, m types.MetricSet) error
}

// Endpoint posts batches as JSON to an HTTP collector, such as the ingest
// cloud function.
type Endpoint struct {
	URL    string
	APIKey string
	Loop   string
	Client *http.Client
}

func (e *Endpoint) Send(ctx context.Context, m types.MetricSet) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}

	u, err := url.Parse(e.URL)
	if err != nil {
		return fmt.Errorf("parsing endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", e.APIKey)
	q.Set("loop", e.Loop)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received statuscode %d from endpoint", resp.StatusCode)
	}
	return nil
}

// Multi fans a batch out to several sinks and returns the first error.
type Multi []Sink

func (ms Multi) Send(ctx context.Context, m types.MetricSet) error {
	var first error
	for _, s := range ms {
		if err := s.Send(ctx, m); err != nil && first == nil {
			first = err
		}
	}
	return first
}
