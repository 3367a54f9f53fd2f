package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fakeagent/fakeagent/agents/configs"
	"fakeagent/fakeagent/agents/core"
	"fakeagent/fakeagent/config"
	"fakeagent/fakeagent/controllers"
	"fakeagent/fakeagent/services/journal"
	"fakeagent/fakeagent/services/metrics"
	"fakeagent/fakeagent/sources/psql"
	"fakeagent/fakeagent/sources/psql/dao"
	"fakeagent/fakeagent/sources/psql/models"
	"fakeagent/fakeagent/sources/storage"
	"fakeagent/fakeagent/types"
	"fakeagent/fakeagent/utils/sse"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testServer struct {
	*httptest.Server
	metrics *metrics.Metrics
	runDAO  *dao.RunDAO
	archive *memArchive
}

// memArchive keeps transcripts in memory in place of MinIO.
type memArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (a *memArchive) UploadTranscript(ctx context.Context, key string, transcript storage.Transcript) error {
	data, err := json.Marshal(transcript)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = data
	return nil
}

func (a *memArchive) GetTranscript(ctx context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return data, nil
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	db, err := psql.Open(context.Background(), gdb)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	runDAO := dao.NewRunDAO(db.DB)
	archive := &memArchive{objects: map[string][]byte{}}
	m := metrics.New()
	runner := core.NewRunner(core.WithDelay(cfg.RunDelay), core.WithPicker(rand.New(rand.NewPCG(7, 7))))
	router := NewRouter(Deps{
		Config:  cfg,
		Health:  controllers.NewHealthController(),
		Runs:    controllers.NewRunController(runner, m, journal.New(runDAO, archive)),
		Threads: controllers.NewThreadController(runDAO, archive),
		Metrics: m,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, metrics: m, runDAO: runDAO, archive: archive}
}

func runBody(t *testing.T, contents ...string) []byte {
	t.Helper()
	acts := make([]map[string]interface{}, 0, len(contents))
	for i, c := range contents {
		acts = append(acts, map[string]interface{}{
			"id": fmt.Sprintf("a%d", i), "type": "message", "role": "user",
			"content": c, "created_at": "2024-01-01T00:00:00Z",
		})
	}
	body, err := json.Marshal(map[string]interface{}{
		"thread": map[string]interface{}{
			"id": "thread-1", "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z",
			"metadata": map[string]interface{}{}, "client_id": "client-1", "type": "chat",
			"activities": acts,
		},
	})
	require.NoError(t, err)
	return body
}

func readEvents(t *testing.T, body io.Reader) []sse.Event {
	t.Helper()
	r := sse.NewReader(body)
	var out []sse.Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, ev)
	}
}

func eventNames(evs []sse.Event) []string {
	names := make([]string, 0, len(evs))
	for _, ev := range evs {
		names = append(names, ev.Event)
	}
	return names
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t, config.Config{})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Agent FastAPI Server"}`, string(body))

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunBuffered(t *testing.T) {
	srv := newTestServer(t, config.Config{})

	resp, err := http.Post(srv.URL+"/run", "application/json", bytes.NewReader(runBody(t, "make_error.0")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var res types.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "manifest", res.Manifest.Type)
	assert.Equal(t, "1.0.2", res.Manifest.Version)
	require.Len(t, res.Activities, 3)
	for _, a := range res.Activities {
		text, ok := a.Content.Text()
		require.True(t, ok)
		assert.Contains(t, configs.LoremVariants, text)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.Runs.WithLabelValues("buffered", "completed")))
}

func TestRunRejectsBadBody(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	for _, path := range []string{"/run", "/run_stream"} {
		for _, body := range []string{`not json`, `{}`} {
			resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, path+" "+body)
		}
	}
}

func TestRunRejectsIncompleteThread(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	cases := []struct {
		name string
		body string
		want []string
	}{
		{"empty thread", `{"thread":{}}`, []string{"thread.id", "thread.created_at", "thread.updated_at",
			"thread.metadata", "thread.client_id", "thread.type", "thread.activities"}},
		{"bare activity", `{"thread":{"id":"t","created_at":"c","updated_at":"u","metadata":{},"client_id":"x","type":"chat",
			"activities":[{"content":"hi"}]}}`, []string{"thread.activities[0].id", "thread.activities[0].type",
			"thread.activities[0].role", "thread.activities[0].created_at"}},
		{"null metadata", `{"thread":{"id":"t","created_at":"c","updated_at":"u","metadata":null,"client_id":"x","type":"chat",
			"activities":[]}}`, []string{"thread.metadata"}},
	}
	for _, path := range []string{"/run", "/run_stream"} {
		for _, tc := range cases {
			t.Run(path+" "+tc.name, func(t *testing.T) {
				resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(tc.body))
				require.NoError(t, err)
				defer resp.Body.Close()
				require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

				var body struct {
					Detail struct {
						Message string `json:"message"`
					} `json:"detail"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "field required: "+strings.Join(tc.want, ", "), body.Detail.Message)
			})
		}
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(srv.metrics.Runs.WithLabelValues("buffered", "completed")))
}

func TestRunAcceptsMissingContent(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	body := `{"thread":{"id":"t","created_at":"c","updated_at":"u","metadata":{},"client_id":"x","type":"chat",
		"activities":[{"id":"a","type":"message","role":"user","created_at":"c"}]}}`
	resp, err := http.Post(srv.URL+"/run", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunOutlivesRequestTimeout(t *testing.T) {
	srv := newTestServer(t, config.Config{RequestTimeout: 50 * time.Millisecond, RunDelay: 60 * time.Millisecond})

	resp, err := http.Post(srv.URL+"/run_stream", "application/json", bytes.NewReader(runBody(t, "hi")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"manifest", "activity", "activity", "activity"}, eventNames(readEvents(t, resp.Body)))

	resp, err = http.Post(srv.URL+"/run", "application/json", bytes.NewReader(runBody(t, "hi")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res types.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Len(t, res.Activities, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.Runs.WithLabelValues("stream", "completed")))
}

func TestRunStreamInjectedError(t *testing.T) {
	srv := newTestServer(t, config.Config{})

	resp, err := http.Post(srv.URL+"/run_stream", "application/json", bytes.NewReader(runBody(t, "hello", "make_error.1")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	evs := readEvents(t, resp.Body)
	assert.Equal(t, []string{"manifest", "activity", "error"}, eventNames(evs))
	assert.JSONEq(t, `{"message":"custom error","details":null}`, string(evs[2].Data))

	var manifest types.VersionManifest
	require.NoError(t, json.Unmarshal(evs[0].Data, &manifest))
	assert.Equal(t, "1.0.2", manifest.Version)

	runs, err := srv.runDAO.ListRunsByThread(context.Background(), "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "injected_error", runs[0].Outcome)
	assert.Equal(t, 1, runs[0].ActivityCount)
	assert.Equal(t, "custom error", runs[0].ErrorMessage)
}

func TestRunStreamVariants(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	cases := []struct {
		name string
		body []byte
		want []string
	}{
		{"empty thread", runBody(t), []string{"manifest", "activity", "activity", "activity"}},
		{"out of range", runBody(t, "make_error.99"), []string{"manifest", "activity", "activity", "activity"}},
		{"not numeric", runBody(t, "make_error.abc"), []string{"manifest", "activity", "activity", "activity"}},
		{"first", runBody(t, "make_error.0"), []string{"manifest", "error"}},
		{"structured content", []byte(`{"thread":{"id":"t","created_at":"c","updated_at":"u","metadata":{},"client_id":"x","type":"chat",
			"activities":[{"id":"a","type":"message","role":"user","created_at":"c","content":{"x":1}}]}}`), []string{"manifest", "error"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/run_stream", "application/json", bytes.NewReader(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			evs := readEvents(t, resp.Body)
			assert.Equal(t, tc.want, eventNames(evs))
			for _, ev := range evs {
				if ev.Event != "activity" {
					continue
				}
				var act types.ActivityResponse
				require.NoError(t, json.Unmarshal(ev.Data, &act))
				text, _ := act.Content.Text()
				assert.Contains(t, configs.LoremVariants, text)
			}
		})
	}
}

func TestRunStreamRequiresTokenWhenConfigured(t *testing.T) {
	srv := newTestServer(t, config.Config{JWTSecret: "s3cret"})
	resp, err := http.Post(srv.URL+"/run_stream", "application/json", bytes.NewReader(runBody(t)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRunWebSocket(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	ctx := context.Background()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/run_ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, runBody(t, "make_error.2")))

	var got []types.EventKind
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
			break
		}
		var frame types.RawFrame
		require.NoError(t, json.Unmarshal(data, &frame))
		got = append(got, frame.Event)
	}
	assert.Equal(t, []types.EventKind{"manifest", "activity", "activity", "error"}, got)
}

func TestThreadRuns(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/run", "application/json", bytes.NewReader(runBody(t, "hi")))
		require.NoError(t, err)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/threads/thread-1/runs?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var runs []models.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "buffered", runs[0].Mode)
	assert.Equal(t, 3, runs[0].ActivityCount)

	resp, err = http.Get(srv.URL + "/threads/unknown/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `[]`, string(body))

	resp, err = http.Get(srv.URL + "/threads/thread-1/runs?limit=x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestThreadRunDetail(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	resp, err := http.Post(srv.URL+"/run_stream", "application/json", bytes.NewReader(runBody(t, "make_error.1")))
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	runs, err := srv.runDAO.ListRunsByThread(context.Background(), "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	require.NotEmpty(t, run.TranscriptKey)

	resp, err = http.Get(fmt.Sprintf("%s/threads/thread-1/runs/%s", srv.URL, run.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail struct {
		ID         string             `json:"id"`
		Outcome    string             `json:"outcome"`
		Transcript storage.Transcript `json:"transcript"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, run.ID.String(), detail.ID)
	assert.Equal(t, "injected_error", detail.Outcome)
	assert.Equal(t, run.ID.String(), detail.Transcript.RunID)
	assert.Equal(t, "stream", detail.Transcript.Mode)
	require.Len(t, detail.Transcript.Frames, 3)
	assert.Equal(t, types.EventError, detail.Transcript.Frames[2].Event)

	// a missing archive object still returns the record
	srv.archive.mu.Lock()
	delete(srv.archive.objects, run.TranscriptKey)
	srv.archive.mu.Unlock()
	resp, err = http.Get(fmt.Sprintf("%s/threads/thread-1/runs/%s", srv.URL, run.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bare map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bare))
	assert.NotContains(t, bare, "transcript")

	cases := []struct {
		path string
		want int
	}{
		{fmt.Sprintf("/threads/other-thread/runs/%s", run.ID), http.StatusNotFound},
		{fmt.Sprintf("/threads/thread-1/runs/%s", uuid.New()), http.StatusNotFound},
		{"/threads/thread-1/runs/not-a-uuid", http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, err := http.Get(srv.URL + tc.path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tc.want, resp.StatusCode, tc.path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, config.Config{})
	resp, err := http.Post(srv.URL+"/run_stream", "application/json", bytes.NewReader(runBody(t)))
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `fakeagent_frames_total{event="activity"} 3`)
	assert.Contains(t, string(body), `fakeagent_runs_total{mode="stream",outcome="completed"} 1`)
}
