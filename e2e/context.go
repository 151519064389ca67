// Package e2e drives a running sunset instance over HTTP. Point
// SUNSET_E2E_BASE_URL at the instance; admin scenarios additionally need
// SUNSET_E2E_API_KEY holding a key the instance accepts.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// TestContext is the shared state for one scenario: the HTTP client, the
// last response, and the admin credential once a scenario authenticates.
type TestContext struct {
	baseURL       string
	client        *http.Client
	apiKey        string
	authenticated bool

	lastStatus int
	lastBody   []byte
}

// NewTestContext creates a fresh context for one scenario.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  os.Getenv("SUNSET_E2E_API_KEY"),
	}
}

// AuthenticateAdmin marks subsequent requests as admin requests. It fails
// when the harness has no credential configured.
func (tc *TestContext) AuthenticateAdmin() error {
	if tc.apiKey == "" {
		return fmt.Errorf("admin scenario needs SUNSET_E2E_API_KEY set")
	}
	tc.authenticated = true
	return nil
}

// POST sends a JSON body to path. A []byte body is sent verbatim; anything
// else is marshalled; nil sends no body.
func (tc *TestContext) POST(path string, body interface{}) error {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		payload = b
	default:
		var err error
		payload, err = json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, tc.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return tc.do(req, nil)
}

// GET fetches path with optional extra headers.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequest(http.MethodGet, tc.baseURL+path, nil)
	if err != nil {
		return err
	}
	return tc.do(req, headers)
}

func (tc *TestContext) do(req *http.Request, headers map[string]string) error {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if tc.authenticated && tc.apiKey != "" {
		req.Header.Set("X-API-Key", tc.apiKey)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastBody = body
	return nil
}

// GetLastResponseStatus returns the status code of the last response.
func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

// GetLastResponseBody returns the raw body of the last response.
func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

// GetResponseField returns a top-level field from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal(tc.lastBody, &parsed); err != nil {
		return nil, fmt.Errorf("last response is not a JSON object: %w", err)
	}
	value, ok := parsed[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q (body: %s)", field, tc.lastBody)
	}
	return value, nil
}

// ResponseContains reports whether the last JSON response has the field.
func (tc *TestContext) ResponseContains(field string) bool {
	_, err := tc.GetResponseField(field)
	return err == nil
}
