package model

import (
	"time"

	"gorm.io/gorm"
)

// ScheduleMode controls when a candidate may start an exam.
type ScheduleMode string

const (
	// ScheduleFlexible allows starting at any point inside [StartAt, EndAt].
	ScheduleFlexible ScheduleMode = "flexible"
	// ScheduleFixed requires starting inside the grace window
	// [StartAt, min(StartAt+GraceMinutes, EndAt)].
	ScheduleFixed ScheduleMode = "fixed"
)

type Exam struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	Title           string         `json:"title" gorm:"not null"`
	Description     string         `json:"description,omitempty"`
	ScheduleMode    ScheduleMode   `json:"schedule_mode" gorm:"type:varchar(16);not null;default:'flexible'"`
	StartAt         time.Time      `json:"start_at" gorm:"not null"`
	EndAt           time.Time      `json:"end_at" gorm:"not null"`
	GraceMinutes    int            `json:"grace_minutes" gorm:"not null;default:0"` // 0 means the configured default
	DurationSeconds int            `json:"duration_seconds" gorm:"not null"`
	MaxAttempts     int            `json:"max_attempts" gorm:"not null;default:1"` // 0 means unlimited
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
