package core

import (
	"context"
	"errors"
	"fakeagent/fakeagent/agents/configs"
	"fakeagent/fakeagent/types"
	"fakeagent/fakeagent/utils/logging"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultDelay = time.Second

type Outcome string

const (
	OutcomeCompleted     Outcome = "completed"
	OutcomeInjectedError Outcome = "injected_error"
	OutcomeFailed        Outcome = "failed"
	OutcomeCanceled      Outcome = "canceled"
)

// Picker chooses an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// PanicError wraps a value recovered while generating a run.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string     { return fmt.Sprint(e.Value) }
func (e *PanicError) ErrorKind() string { return "Panic" }

type deliveryError struct {
	err error
}

func (e *deliveryError) Error() string { return "deliver frame: " + e.err.Error() }
func (e *deliveryError) Unwrap() error { return e.err }

// Runner produces the simulated agent reply for a thread.
type Runner struct {
	Config *configs.AgentConfig
	Delay  time.Duration
	picker Picker
}

type Option func(*Runner)

func WithPicker(p Picker) Option {
	return func(r *Runner) { r.picker = p }
}

func WithDelay(d time.Duration) Option {
	return func(r *Runner) { r.Delay = d }
}

func WithConfig(cfg *configs.AgentConfig) Option {
	return func(r *Runner) { r.Config = cfg }
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Config: configs.LoadConfig(),
		Delay:  DefaultDelay,
		picker: globalPicker{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run is the buffered mode: the manifest plus every activity in one result.
// The error trigger is not consulted here.
func (r *Runner) Run(ctx context.Context, thread types.Thread) (types.RunResult, error) {
	defer logging.LogDuration(ctx, "Runner.Run")()

	result := types.RunResult{
		Manifest:   types.NewVersionManifest(),
		Activities: make([]types.ActivityResponse, 0, r.Config.ActivityCount),
	}
	for i := 0; i < r.Config.ActivityCount; i++ {
		if err := r.wait(ctx); err != nil {
			return types.RunResult{}, err
		}
		result.Activities = append(result.Activities, r.nextActivity())
	}
	logging.AppLogger.Info("run completed",
		zap.String("agent", r.Config.AgentName),
		zap.String("thread_id", thread.ID),
		zap.Int("activities", len(result.Activities)),
	)
	return result, nil
}

// Stream is the streaming mode. It sends the manifest, then one frame per
// activity, stopping early with a single error frame when the thread asks
// for an injected error or generation fails. The returned error is non-nil
// only when frames could not be delivered.
func (r *Runner) Stream(ctx context.Context, thread types.Thread, sink Sink) (Outcome, error) {
	defer logging.LogDuration(ctx, "Runner.Stream")()

	outcome, err := r.generate(ctx, thread, sink)
	if err == nil {
		return outcome, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		logging.AppLogger.Info("run canceled", zap.String("thread_id", thread.ID), zap.Error(ctxErr))
		return OutcomeCanceled, ctxErr
	}
	var de *deliveryError
	if errors.As(err, &de) {
		logging.ErrorLogger.Error("run delivery failed", zap.String("thread_id", thread.ID), zap.Error(err))
		return OutcomeFailed, err
	}

	logging.ErrorLogger.Error("run failed",
		zap.String("thread_id", thread.ID),
		zap.String("error_type", ErrorKind(err)),
		zap.Error(err),
	)
	frame := types.Frame{Event: types.EventError, Data: types.ErrorResponse{
		Message: err.Error(),
		Details: map[string]interface{}{"error_type": ErrorKind(err)},
	}}
	if sendErr := sink.Send(ctx, frame); sendErr != nil {
		return OutcomeFailed, &deliveryError{err: sendErr}
	}
	return OutcomeFailed, nil
}

func (r *Runner) generate(ctx context.Context, thread types.Thread, sink Sink) (outcome Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome, err = OutcomeFailed, &PanicError{Value: rec}
		}
	}()

	send := func(frame types.Frame) error {
		if err := sink.Send(ctx, frame); err != nil {
			return &deliveryError{err: err}
		}
		return nil
	}

	if err := send(types.Frame{Event: types.EventManifest, Data: types.NewVersionManifest()}); err != nil {
		return OutcomeFailed, err
	}

	lastUserMessage, err := LastUserMessage(thread)
	if err != nil {
		return OutcomeFailed, err
	}
	errorAt, triggered := ErrorTrigger(lastUserMessage)

	for i := 0; i < r.Config.ActivityCount; i++ {
		if triggered && errorAt == i {
			logging.AppLogger.Info("injected error",
				zap.String("agent", r.Config.AgentName),
				zap.String("thread_id", thread.ID),
				zap.Int("iteration", i),
			)
			frame := types.Frame{Event: types.EventError, Data: types.ErrorResponse{Message: types.InjectedErrorMsg}}
			if err := send(frame); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeInjectedError, nil
		}
		if err := r.wait(ctx); err != nil {
			return OutcomeCanceled, err
		}
		if err := send(types.Frame{Event: types.EventActivity, Data: r.nextActivity()}); err != nil {
			return OutcomeFailed, err
		}
	}
	logging.AppLogger.Info("run completed",
		zap.String("agent", r.Config.AgentName),
		zap.String("thread_id", thread.ID),
		zap.Int("activities", r.Config.ActivityCount),
	)
	return OutcomeCompleted, nil
}

func (r *Runner) nextActivity() types.ActivityResponse {
	pool := r.Config.Filler
	return types.NewAssistantMessage(pool[r.picker.IntN(len(pool))])
}

// wait simulates processing time between activities.
func (r *Runner) wait(ctx context.Context) error {
	if r.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ErrorKind names the kind of err for the "error_type" detail of an error frame.
func ErrorKind(err error) string {
	var k interface{ ErrorKind() string }
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
