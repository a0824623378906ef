package storage

import "time"

// TrackerEntry is one row of the tracker store.
type TrackerEntry struct {
	ResourceID string    `json:"resource_id" gorm:"primaryKey;column:resource_id"`
	LastUpdate time.Time `json:"last_update" gorm:"column:last_update"`
}

func (TrackerEntry) TableName() string { return "refresh_tracker" }

// Snapshot stores the latest payload a producer wrote for a resource.
type Snapshot struct {
	ID          uint      `json:"-" gorm:"primaryKey;column:id"`
	Resource    string    `json:"resource" gorm:"column:resource;uniqueIndex:idx_dataset_snapshots_resource"`
	ContentType string    `json:"content_type" gorm:"column:content_type"`
	Payload     []byte    `json:"payload" gorm:"column:payload"`
	FetchedAt   time.Time `json:"fetched_at" gorm:"column:fetched_at"`
}

func (Snapshot) TableName() string { return "dataset_snapshots" }

// ScheduledJob records the last run of a named background job.
type ScheduledJob struct {
	Name           string    `json:"name" gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `json:"last_run_at" gorm:"column:last_run_at"`
	LastDurationMs int64     `json:"last_duration_ms" gorm:"column:last_duration_ms"`
	LastSuccess    int       `json:"last_success" gorm:"column:last_success"`
	LastError      string    `json:"last_error" gorm:"column:last_error"`
}

func (ScheduledJob) TableName() string { return "scheduled_jobs" }
