package consent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HTTPReporter posts decision reports as form-encoded requests.
type HTTPReporter struct {
	endpoint string
	client   *http.Client
}

var _ Reporter = (*HTTPReporter)(nil)

// NewHTTPReporter creates a reporter for endpoint. A nil client uses
// http.DefaultClient.
func NewHTTPReporter(endpoint string, client *http.Client) *HTTPReporter {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPReporter{endpoint: endpoint, client: client}
}

// Report sends r. Non-2xx responses are errors; nothing is retried.
func (h *HTTPReporter) Report(ctx context.Context, r Report) error {
	form := url.Values{}
	form.Set("action", r.Action)
	form.Set("consent", string(r.Consent))
	form.Set("categories", r.Categories)
	form.Set("config_version", r.ConfigVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting report: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("report rejected: %s", resp.Status)
	}
	return nil
}
