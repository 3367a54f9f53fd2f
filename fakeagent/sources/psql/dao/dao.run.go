// fakeagent/sources/psql/dao/dao.run.go
package dao

import (
	"context"
	"fakeagent/fakeagent/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RunDAO struct {
	DB *gorm.DB
}

func NewRunDAO(db *gorm.DB) *RunDAO {
	return &RunDAO{DB: db}
}

func (dao *RunDAO) CreateRun(ctx context.Context, run *models.RunRecord) error {
	return dao.DB.WithContext(ctx).Create(run).Error
}

func (dao *RunDAO) GetRunByID(ctx context.Context, id uuid.UUID) (*models.RunRecord, error) {
	var run models.RunRecord
	err := dao.DB.WithContext(ctx).First(&run, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRunsByThread returns the runs of a thread, newest first.
func (dao *RunDAO) ListRunsByThread(ctx context.Context, threadID string, limit int) ([]models.RunRecord, error) {
	var runs []models.RunRecord
	q := dao.DB.WithContext(ctx).Where("thread_id = ?", threadID).Order("started_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
