// Package client talks to a running agent over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fakeagent/fakeagent/types"
	httputils "fakeagent/fakeagent/utils/http"
	"fakeagent/fakeagent/utils/sse"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AgentError is a failure reported by the agent, either as a non-200
// response or as an error frame in a stream.
type AgentError struct {
	Status  int
	Message string
	Details map[string]interface{}
}

func (e *AgentError) Error() string {
	return e.Message
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: http.DefaultClient}
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	if c.Token != "" {
		h.Set("Authorization", "Bearer "+c.Token)
	}
	return h
}

func requestError(err error) error {
	var se *httputils.StatusError
	if errors.As(err, &se) {
		return statusError(se)
	}
	return fmt.Errorf("[Agent API] request failed: %w", err)
}

func statusError(se *httputils.StatusError) error {
	msg := "Unknown error"
	var body struct {
		Message string `json:"message"`
		Detail  struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(se.Body, &body); err == nil {
		switch {
		case body.Message != "":
			msg = body.Message
		case body.Detail.Message != "":
			msg = body.Detail.Message
		}
	}
	return &AgentError{
		Status:  se.Code,
		Message: fmt.Sprintf("[Agent API] Error response (%d): %s", se.Code, msg),
	}
}

// Run calls the buffered endpoint.
func (c *Client) Run(ctx context.Context, thread types.Thread) (types.RunResult, error) {
	var res types.RunResult
	err := httputils.PostJSON(ctx, c.HTTP, c.BaseURL+"/run", c.headers(), types.RunRequest{Thread: &thread}, &res)
	if err != nil {
		return types.RunResult{}, requestError(err)
	}
	return res, nil
}

// Stream calls the streaming endpoint and hands every manifest and activity
// frame to fn in order. An error frame ends the stream with an *AgentError.
// A frame without an event name is taken to be the manifest.
func (c *Client) Stream(ctx context.Context, thread types.Thread, fn func(types.RawFrame) error) error {
	body, err := httputils.PostStream(ctx, c.HTTP, c.BaseURL+"/run_stream", c.headers(), types.RunRequest{Thread: &thread})
	if err != nil {
		return requestError(err)
	}
	defer body.Close()

	r := sse.NewReader(body)
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("[Agent API] read stream: %w", err)
		}
		switch types.EventKind(ev.Event) {
		case types.EventError:
			var e types.ErrorResponse
			if err := json.Unmarshal(ev.Data, &e); err != nil {
				return fmt.Errorf("[Agent API] decode error frame: %w", err)
			}
			return &AgentError{Status: http.StatusOK, Message: e.Message, Details: e.Details}
		case "", types.EventManifest:
			if err := fn(types.RawFrame{Event: types.EventManifest, Data: ev.Data}); err != nil {
				return err
			}
		case types.EventActivity:
			if err := fn(types.RawFrame{Event: types.EventActivity, Data: ev.Data}); err != nil {
				return err
			}
		}
	}
}

// UserThread builds a single-message thread for ad-hoc runs.
func UserThread(id, clientID, message, now string) types.Thread {
	return types.Thread{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]interface{}{},
		ClientID:  clientID,
		Type:      "chat",
		Activities: []types.Activity{{
			ID:        id + "-1",
			Type:      types.MessageType,
			Role:      "user",
			Content:   types.TextContent(message),
			CreatedAt: now,
		}},
	}
}
