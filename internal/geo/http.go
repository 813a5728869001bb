package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPLocator queries an ipapi.co compatible JSON endpoint.
type HTTPLocator struct {
	baseURL string
	client  *http.Client
}

type ipAPIResponse struct {
	CountryName string `json:"country_name"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

func NewHTTPLocator(baseURL string, client *http.Client) *HTTPLocator {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLocator{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (l *HTTPLocator) Lookup(ctx context.Context, ip string) (string, error) {
	endpoint := l.baseURL + "/json/"
	if ip != "" {
		endpoint = l.baseURL + "/" + ip + "/json/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build geo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("geo request returned %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode geo response: %w", err)
	}
	if body.Error {
		return "", fmt.Errorf("geo lookup rejected: %s", body.Reason)
	}
	if body.CountryName == "" {
		return "", ErrNoCountry
	}

	return body.CountryName, nil
}
