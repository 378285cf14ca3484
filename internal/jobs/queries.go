package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/sales-portal/internal/models"
	"github.com/diewo77/sales-portal/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	JobPageSize = 20
	LogPageSize = 50
)

// Store answers the read side of jobs. It never writes.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns one page of jobs, newest first, without payload and result.
func (s *Store) List(ctx context.Context, page int) ([]models.Job, int64, error) {
	if page < 1 {
		page = 1
	}
	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.Job{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var jobs []models.Job
	err := db.Omit("payload", "result").
		Order("created_at DESC").
		Order("id DESC").
		Limit(JobPageSize).
		Offset((page - 1) * JobPageSize).
		Find(&jobs).Error
	return jobs, total, err
}

// Get returns a job with its payload and result.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job %s: %w", id, services.ErrNotFound)
		}
		return nil, err
	}
	return &job, nil
}

// Logs returns one page of a job's log, most recent first. Entries with the
// same timestamp are ordered by insertion, newest first.
func (s *Store) Logs(ctx context.Context, id uuid.UUID, page int) ([]models.JobLog, int64, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	db := s.db.WithContext(ctx).Model(&models.JobLog{}).Where("job_id = ?", id)
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.JobLog
	err := s.db.WithContext(ctx).
		Where("job_id = ?", id).
		Order("ts DESC").Order("id DESC").
		Limit(LogPageSize).
		Offset((page - 1) * LogPageSize).
		Find(&logs).Error
	return logs, total, err
}
