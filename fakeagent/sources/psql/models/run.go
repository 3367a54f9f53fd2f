// fakeagent/sources/psql/models/run.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunRecord is one finished run of the agent, buffered or streamed.
type RunRecord struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ThreadID      string    `json:"thread_id" gorm:"type:varchar(255);not null;index"`
	ClientID      string    `json:"client_id" gorm:"type:varchar(255)"`
	Mode          string    `json:"mode" gorm:"type:varchar(32);not null"`
	Outcome       string    `json:"outcome" gorm:"type:varchar(32);not null"`
	ActivityCount int       `json:"activity_count" gorm:"not null;default:0"`
	ErrorMessage  string    `json:"error_message,omitempty" gorm:"type:text"`
	TranscriptKey string    `json:"transcript_key,omitempty" gorm:"type:varchar(512)"`
	StartedAt     time.Time `json:"started_at" gorm:"not null"`
	FinishedAt    time.Time `json:"finished_at" gorm:"not null"`
}

func (RunRecord) TableName() string {
	return "run_records"
}

func (r *RunRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
