package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext holds the HTTP client and the last response of a scenario.
type TestContext struct {
	baseURL string
	client  *http.Client

	status int
	body   []byte
}

// NewTestContext creates a context against a running consentd at baseURL.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears the last response between scenarios.
func (tc *TestContext) Reset() {
	tc.status = 0
	tc.body = nil
}

// Do sends a request with an optional JSON body and records the response.
func (tc *TestContext) Do(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	return err
}

// DoRaw sends body bytes as-is.
func (tc *TestContext) DoRaw(ctx context.Context, method, path, body string) error {
	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	return err
}

// Status returns the last response status code.
func (tc *TestContext) Status() int {
	return tc.status
}

// Field walks a dotted path through the last JSON response body.
func (tc *TestContext) Field(path string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.body, &doc); err != nil {
		return nil, fmt.Errorf("response is not json: %w", err)
	}
	for _, part := range strings.Split(path, ".") {
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: %q is not an object", path, part)
		}
		if doc, ok = obj[part]; !ok {
			return nil, fmt.Errorf("%s: missing %q", path, part)
		}
	}
	return doc, nil
}
