package core

import (
	"context"
	"fakeagent/fakeagent/types"
	"sync"
)

// Sink delivers the frames of a streamed run to a client transport.
type Sink interface {
	Send(ctx context.Context, frame types.Frame) error
}

type SinkFunc func(ctx context.Context, frame types.Frame) error

func (f SinkFunc) Send(ctx context.Context, frame types.Frame) error {
	return f(ctx, frame)
}

// RecordingSink keeps a copy of every frame it forwards. Next may be nil.
type RecordingSink struct {
	Next Sink

	mu     sync.Mutex
	frames []types.Frame
}

func NewRecordingSink(next Sink) *RecordingSink {
	return &RecordingSink{Next: next}
}

func (s *RecordingSink) Send(ctx context.Context, frame types.Frame) error {
	if s.Next != nil {
		if err := s.Next.Send(ctx, frame); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.frames = append(s.frames, frame)
	s.mu.Unlock()
	return nil
}

func (s *RecordingSink) Frames() []types.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}
