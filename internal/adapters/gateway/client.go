package gateway

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

const defaultTimeout = 10 * time.Second

// apiFailure is the error body both upstream APIs return for 4xx responses.
type apiFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// serverError marks responses that should trip the breaker.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.status)
}

type response struct {
	status int
	body   []byte
}

type Option func(*options)

type options struct {
	httpClient *http.Client
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

func buildOptions(opts []Option) options {
	o := options{httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// postJSON sends body to url. 5xx responses come back as *serverError so the
// caller's circuit breaker counts them. 4xx responses are returned as data.
func postJSON(ctx context.Context, client *http.Client, url string, body any) (response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return response{}, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return response{}, &serverError{status: resp.StatusCode}
	}
	return response{status: resp.StatusCode, body: data}, nil
}

func decodeFailure(body []byte) apiFailure {
	var f apiFailure
	_ = json.Unmarshal(body, &f)
	f.Code = strings.ToUpper(strings.TrimSpace(f.Code))
	return f
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
