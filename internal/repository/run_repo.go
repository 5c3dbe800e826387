package repository

import (
	"context"
	"time"

	"ShowSync/internal/apperr"
	"ShowSync/internal/interfaces"
	"ShowSync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

var _ interfaces.RunRepository = (*RunRepository)(nil)

// CreateRun 记录一次运行的开始，ID 为空时生成 uuid
func (r *RunRepository) CreateRun(ctx context.Context, run *model.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	row, err := runFromModel(run)
	if err != nil {
		return apperr.Store("create_run", run.ID, err)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return apperr.Store("create_run", run.ID, err)
	}
	return nil
}

// FinishRun 写入结束时间、计数和失败明细
func (r *RunRepository) FinishRun(ctx context.Context, run *model.SyncRun) error {
	if run.FinishedAt == nil {
		now := time.Now()
		run.FinishedAt = &now
	}
	row, err := runFromModel(run)
	if err != nil {
		return apperr.Store("finish_run", run.ID, err)
	}
	err = r.db.WithContext(ctx).Model(&syncRunRow{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"finished_at":  row.FinishedAt,
		"shows_seen":   row.ShowsSeen,
		"shows_stored": row.ShowsStored,
		"failures":     row.Failures,
	}).Error
	if err != nil {
		return apperr.Store("finish_run", run.ID, err)
	}
	return nil
}

// ListRuns 最近的运行记录，按开始时间倒序
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []syncRunRow
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, apperr.Store("list_runs", "", err)
	}
	out := make([]model.SyncRun, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
