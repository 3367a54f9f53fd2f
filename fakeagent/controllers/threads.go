package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fakeagent/fakeagent/sources/psql/dao"
	"fakeagent/fakeagent/sources/psql/models"
	"fakeagent/fakeagent/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultRunListLimit = 50

var ErrRunNotFound = errors.New("run not found")

// TranscriptReader fetches archived run transcripts.
type TranscriptReader interface {
	GetTranscript(ctx context.Context, key string) ([]byte, error)
}

// RunDetail is a journalled run together with its archived transcript, if any.
type RunDetail struct {
	models.RunRecord
	Transcript json.RawMessage `json:"transcript,omitempty"`
}

// ThreadController exposes the run journal.
type ThreadController struct {
	runDAO      *dao.RunDAO
	transcripts TranscriptReader
}

// NewThreadController builds the journal endpoints. transcripts may be nil
// when no archive is configured.
func NewThreadController(runDAO *dao.RunDAO, transcripts TranscriptReader) *ThreadController {
	return &ThreadController{runDAO: runDAO, transcripts: transcripts}
}

func (c *ThreadController) ListRuns(ctx context.Context, threadID string, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	runs, err := c.runDAO.ListRunsByThread(ctx, threadID, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []models.RunRecord{}
	}
	return runs, nil
}

// GetRun returns one run of a thread. A run that belongs to another thread
// is reported as not found.
func (c *ThreadController) GetRun(ctx context.Context, threadID string, runID uuid.UUID) (*RunDetail, error) {
	run, err := c.runDAO.GetRunByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil || run.ThreadID != threadID {
		return nil, ErrRunNotFound
	}

	detail := &RunDetail{RunRecord: *run}
	if run.TranscriptKey == "" || c.transcripts == nil {
		return detail, nil
	}
	data, err := c.transcripts.GetTranscript(ctx, run.TranscriptKey)
	if err != nil {
		logging.ErrorLogger.Error("transcript fetch failed",
			zap.String("run_id", runID.String()),
			zap.String("key", run.TranscriptKey),
			zap.Error(err),
		)
		return detail, nil
	}
	if json.Valid(data) {
		detail.Transcript = data
	}
	return detail, nil
}
