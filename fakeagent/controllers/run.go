// fakeagent/controllers/run.go
package controllers

import (
	"context"
	"encoding/json"
	"fakeagent/fakeagent/agents/core"
	"fakeagent/fakeagent/services/journal"
	"fakeagent/fakeagent/services/metrics"
	"fakeagent/fakeagent/types"
	"time"
)

const (
	ModeBuffered  = "buffered"
	ModeStream    = "stream"
	ModeWebSocket = "websocket"
)

type RunController struct {
	runner  *core.Runner
	metrics *metrics.Metrics
	journal *journal.Journal
}

func NewRunController(runner *core.Runner, m *metrics.Metrics, j *journal.Journal) *RunController {
	return &RunController{runner: runner, metrics: m, journal: j}
}

// Run answers the thread in one buffered result.
func (c *RunController) Run(ctx context.Context, thread types.Thread) (types.RunResult, error) {
	start := time.Now()
	res, err := c.runner.Run(ctx, thread)

	outcome := core.OutcomeCompleted
	if err != nil {
		outcome = core.OutcomeFailed
		if ctx.Err() != nil {
			outcome = core.OutcomeCanceled
		}
	}
	c.finish(ctx, journal.Entry{
		Thread:     thread,
		Mode:       ModeBuffered,
		Outcome:    string(outcome),
		Err:        err,
		Frames:     bufferedFrames(res),
		Activities: len(res.Activities),
		StartedAt:  start,
	})
	return res, err
}

// Stream answers the thread frame by frame through sink.
func (c *RunController) Stream(ctx context.Context, mode string, thread types.Thread, sink core.Sink) (core.Outcome, error) {
	start := time.Now()
	activities := 0
	counted := core.SinkFunc(func(ctx context.Context, frame types.Frame) error {
		if err := sink.Send(ctx, frame); err != nil {
			return err
		}
		if frame.Event == types.EventActivity {
			activities++
		}
		c.metrics.ObserveFrame(string(frame.Event))
		return nil
	})
	rec := core.NewRecordingSink(counted)

	outcome, err := c.runner.Stream(ctx, thread, rec)

	entry := journal.Entry{
		Thread:     thread,
		Mode:       mode,
		Outcome:    string(outcome),
		Err:        err,
		Frames:     rec.Frames(),
		Activities: activities,
		StartedAt:  start,
	}
	if err == nil {
		entry.Err = streamedError(entry.Frames)
	}
	c.finish(ctx, entry)
	return outcome, err
}

func (c *RunController) finish(ctx context.Context, e journal.Entry) {
	e.FinishedAt = time.Now()
	c.metrics.ObserveRun(e.Mode, e.Outcome, e.FinishedAt.Sub(e.StartedAt))
	c.journal.Record(ctx, e)
}

func bufferedFrames(res types.RunResult) []types.Frame {
	if len(res.Activities) == 0 {
		return nil
	}
	frames := []types.Frame{{Event: types.EventManifest, Data: res.Manifest}}
	for _, a := range res.Activities {
		frames = append(frames, types.Frame{Event: types.EventActivity, Data: a})
	}
	return frames
}

type streamError string

func (e streamError) Error() string { return string(e) }

// streamedError returns the error carried by a terminal error frame, if any.
func streamedError(frames []types.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	last := frames[len(frames)-1]
	if last.Event != types.EventError {
		return nil
	}
	if resp, ok := last.Data.(types.ErrorResponse); ok {
		return streamError(resp.Message)
	}
	b, _ := json.Marshal(last.Data)
	return streamError(b)
}
