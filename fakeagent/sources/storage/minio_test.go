package storage

import (
	"encoding/json"
	"fakeagent/fakeagent/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptKey(t *testing.T) {
	assert.Equal(t, "runs/thread-1/abc.json", TranscriptKey("thread-1", "abc"))
	assert.Equal(t, "runs/a%2Fb/abc.json", TranscriptKey("a/b", "abc"))
}

func TestTranscriptJSON(t *testing.T) {
	tr := Transcript{
		RunID:    "r1",
		ThreadID: "t1",
		Mode:     "stream",
		Outcome:  "injected_error",
		Frames: []types.Frame{
			{Event: types.EventManifest, Data: types.NewVersionManifest()},
			{Event: types.EventError, Data: types.ErrorResponse{Message: types.InjectedErrorMsg}},
		},
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(tr)
	require.NoError(t, err)

	var decoded struct {
		Frames []types.RawFrame `json:"frames"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Frames, 2)
	assert.Equal(t, types.EventError, decoded.Frames[1].Event)
	assert.JSONEq(t, `{"message":"custom error","details":null}`, string(decoded.Frames[1].Data))
}
