package sse

import (
	"context"
	"fakeagent/fakeagent/types"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noFlush struct {
	http.ResponseWriter
}

func TestNewWriterRequiresFlusher(t *testing.T) {
	_, err := NewWriter(noFlush{httptest.NewRecorder()})
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

func TestWriterSend(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, w.Send(ctx, types.Frame{Event: types.EventManifest, Data: types.NewVersionManifest()}))
	require.NoError(t, w.Send(ctx, types.Frame{Event: types.EventActivity, Data: types.NewAssistantMessage("a\n\nb")}))
	require.NoError(t, w.Send(ctx, types.Frame{Event: types.EventError, Data: types.ErrorResponse{Message: "custom error"}}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.True(t, rec.Flushed)

	body := rec.Body.String()
	assert.Contains(t, body, "event: activity\ndata: {\"type\":\"message\",\"role\":\"assistant\",\"content\":\"a\\n\\nb\"}\n\n")
	assert.True(t, strings.HasSuffix(body, "event: error\ndata: {\"message\":\"custom error\",\"details\":null}\n\n"))

	r := NewReader(strings.NewReader(body))
	var got []string
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, ev.Event)
	}
	assert.Equal(t, []string{"manifest", "activity", "error"}, got)
}

func TestReaderUntaggedAndMultiline(t *testing.T) {
	stream := "data: {\"type\":\"manifest\"}\n\n: comment\n\nevent: activity\ndata: line1\ndata: line2\n\nevent: error\ndata: {}"
	r := NewReader(strings.NewReader(stream))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "", ev.Event)
	assert.JSONEq(t, `{"type":"manifest"}`, string(ev.Data))

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "activity", ev.Event)
	assert.Equal(t, "line1\nline2", string(ev.Data))

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "error", ev.Event)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}
