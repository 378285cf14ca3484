package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/sales-portal/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errTerminal = errors.New("job already finished")

// tracker is the only writer of one job's row. Every change is a targeted
// column update keyed by id, followed by a refresh of the in-memory copy, so
// pollers reading the row never see a whole-row overwrite.
type tracker struct {
	db  *gorm.DB
	job *models.Job
	now func() time.Time
}

func newTracker(db *gorm.DB, job *models.Job) *tracker {
	return &tracker{db: db, job: job, now: time.Now}
}

func (t *tracker) update(fields map[string]any) error {
	if t.job.Status.IsTerminal() {
		return errTerminal
	}
	if err := t.db.Model(&models.Job{}).Where("id = ?", t.job.ID).Updates(fields).Error; err != nil {
		return fmt.Errorf("update job %s: %w", t.job.ID, err)
	}
	var fresh models.Job
	if err := t.db.Where("id = ?", t.job.ID).First(&fresh).Error; err != nil {
		return fmt.Errorf("refresh job %s: %w", t.job.ID, err)
	}
	*t.job = fresh
	return nil
}

func (t *tracker) log(level, msg string) error {
	entry := models.JobLog{JobID: t.job.ID, TS: t.now(), Level: level, Message: msg}
	if err := t.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("append log to job %s: %w", t.job.ID, err)
	}
	return nil
}

// start moves the job to running. started_at is only set the first time.
func (t *tracker) start() error {
	fields := map[string]any{"status": models.JobStatusRunning, "progress": 0}
	if t.job.StartedAt == nil {
		fields["started_at"] = t.now()
	}
	if err := t.update(fields); err != nil {
		return err
	}
	return t.log(models.LogLevelInfo, "job started")
}

func (t *tracker) stepDone(title string, result map[string]any, progress int) error {
	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", result))
	}
	if err := t.log(models.LogLevelInfo, fmt.Sprintf("completed %s: %s", title, payload)); err != nil {
		return err
	}
	return t.update(map[string]any{"progress": progress})
}

func (t *tracker) succeed() error {
	if err := t.update(map[string]any{
		"status":      models.JobStatusSuccess,
		"progress":    100,
		"result":      datatypes.JSON(`{"ok":true}`),
		"finished_at": t.now(),
	}); err != nil {
		return err
	}
	return t.log(models.LogLevelInfo, "job finished successfully")
}

// fail moves the job to error and records the fault. Progress is kept.
func (t *tracker) fail(fault error) error {
	result, _ := json.Marshal(map[string]string{"error": fault.Error()})
	if err := t.update(map[string]any{
		"status":      models.JobStatusError,
		"result":      datatypes.JSON(result),
		"finished_at": t.now(),
	}); err != nil {
		return err
	}
	return t.log(models.LogLevelError, "error: "+fault.Error())
}
