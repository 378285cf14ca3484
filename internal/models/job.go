package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusError   JobStatus = "error"
)

// IsTerminal reports whether no further transition is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusError
}

// Log levels used by JobLog.
const (
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
)

// Job is one asynchronous run of a named step sequence.
type Job struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string         `gorm:"size:120;not null" json:"name"`
	Type       string         `gorm:"size:50;not null;index" json:"type"`
	Status     JobStatus      `gorm:"size:20;not null;index" json:"status"`
	Progress   int            `gorm:"not null" json:"progress"`
	Payload    datatypes.JSON `json:"payload"`
	Result     datatypes.JSON `json:"result"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	StartedAt  *time.Time     `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`

	Logs []JobLog `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a random id and the queued status.
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = JobStatusQueued
	}
	return nil
}

// JobLog is an append-only log entry of a job. Entries are never updated.
type JobLog struct {
	ID      uint      `gorm:"primaryKey" json:"-"`
	JobID   uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	TS      time.Time `gorm:"column:ts;index;not null" json:"ts"`
	Level   string    `gorm:"size:10;not null" json:"level"`
	Message string    `gorm:"type:text;not null" json:"message"`
}

// BeforeCreate stamps the entry when the caller did not.
func (l *JobLog) BeforeCreate(tx *gorm.DB) error {
	if l.TS.IsZero() {
		l.TS = time.Now()
	}
	if l.Level == "" {
		l.Level = LogLevelInfo
	}
	return nil
}
