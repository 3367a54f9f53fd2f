package journal

import (
	"context"
	"fakeagent/fakeagent/sources/psql/models"
	"fakeagent/fakeagent/sources/storage"
	"fakeagent/fakeagent/types"
	"fakeagent/fakeagent/utils/logging"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const recordTimeout = 5 * time.Second

type RunStore interface {
	CreateRun(ctx context.Context, run *models.RunRecord) error
}

type TranscriptStore interface {
	UploadTranscript(ctx context.Context, key string, transcript storage.Transcript) error
}

// Entry describes a finished run.
type Entry struct {
	Thread     types.Thread
	Mode       string
	Outcome    string
	Err        error
	Frames     []types.Frame
	Activities int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Journal writes finished runs to the configured stores. Either store may be
// nil; a zero Journal records nothing.
type Journal struct {
	runs        RunStore
	transcripts TranscriptStore
}

func New(runs RunStore, transcripts TranscriptStore) *Journal {
	return &Journal{runs: runs, transcripts: transcripts}
}

func (j *Journal) Enabled() bool {
	return j != nil && (j.runs != nil || j.transcripts != nil)
}

// Record stores the entry. Failures are logged and never returned: the run
// has already been answered.
func (j *Journal) Record(ctx context.Context, e Entry) uuid.UUID {
	if !j.Enabled() {
		return uuid.Nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	runID := uuid.New()
	fields := []zap.Field{
		zap.String("run_id", runID.String()),
		zap.String("thread_id", e.Thread.ID),
		zap.String("mode", e.Mode),
	}

	var key string
	if j.transcripts != nil {
		key = storage.TranscriptKey(e.Thread.ID, runID.String())
		err := j.transcripts.UploadTranscript(ctx, key, storage.Transcript{
			RunID:     runID.String(),
			ThreadID:  e.Thread.ID,
			Mode:      e.Mode,
			Outcome:   e.Outcome,
			Frames:    e.Frames,
			Timestamp: e.FinishedAt,
		})
		if err != nil {
			logging.ErrorLogger.Error("transcript upload failed", append(fields, zap.Error(err))...)
			key = ""
		}
	}

	if j.runs != nil {
		rec := &models.RunRecord{
			ID:            runID,
			ThreadID:      e.Thread.ID,
			ClientID:      e.Thread.ClientID,
			Mode:          e.Mode,
			Outcome:       e.Outcome,
			ActivityCount: e.Activities,
			TranscriptKey: key,
			StartedAt:     e.StartedAt,
			FinishedAt:    e.FinishedAt,
		}
		if e.Err != nil {
			rec.ErrorMessage = e.Err.Error()
		}
		if err := j.runs.CreateRun(ctx, rec); err != nil {
			logging.ErrorLogger.Error("run journal write failed", append(fields, zap.Error(err))...)
			return runID
		}
	}
	logging.AppLogger.Info("run recorded", fields...)
	return runID
}
