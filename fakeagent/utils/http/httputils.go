// fakeagent/utils/http/httputils.go
package httputils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StatusError is returned for any non-200 response. Body holds the
// response body, read in full.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %d", e.Code)
}

func newRequest(ctx context.Context, url string, headers http.Header, body interface{}) (*http.Request, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func PostJSON(ctx context.Context, c *http.Client, url string, headers http.Header, body interface{}, resp interface{}) error {
	r, err := PostStream(ctx, c, url, headers, body)
	if err != nil {
		return err
	}
	defer r.Close()
	if resp != nil {
		return json.NewDecoder(r).Decode(resp)
	}
	return nil
}

// PostStream posts body as JSON and returns the open response body.
func PostStream(ctx context.Context, c *http.Client, url string, headers http.Header, body interface{}) (io.ReadCloser, error) {
	req, err := newRequest(ctx, url, headers, body)
	if err != nil {
		return nil, err
	}
	r, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if r.StatusCode != http.StatusOK {
		defer r.Body.Close()
		data, _ := io.ReadAll(r.Body)
		return nil, &StatusError{Code: r.StatusCode, Body: data}
	}
	return r.Body, nil
}
