package model

import (
	"time"

	"gorm.io/gorm"
)

// AttemptStatus is the lifecycle state of a candidate's exam session.
type AttemptStatus string

const (
	AttemptStarted        AttemptStatus = "started"
	AttemptInProgress     AttemptStatus = "in_progress"
	AttemptPaused         AttemptStatus = "paused"
	AttemptSubmitted      AttemptStatus = "submitted"
	AttemptForceSubmitted AttemptStatus = "force_submitted"
	AttemptTerminated     AttemptStatus = "terminated"
	AttemptExpired        AttemptStatus = "expired"
	AttemptCancelled      AttemptStatus = "cancelled"
)

// ExpiryReason classifies how an attempt ran out of time.
type ExpiryReason string

const (
	ExpiryTimerActive       ExpiryReason = "timer_expired_active"
	ExpiryTimerDisconnected ExpiryReason = "timer_expired_disconnected"
	ExpiryExamWindowClosed  ExpiryReason = "exam_window_closed"
)

// Attempt is one candidate exam session. The partial unique index
// uniq_attempts_live holds the invariant of at most one live attempt per
// candidate and exam at the database level; a racing second insert fails with
// a duplicate-key error.
type Attempt struct {
	ID                  uint           `gorm:"primarykey" json:"id"`
	ExamID              uint           `json:"exam_id" gorm:"not null;index:idx_attempts_exam_status;uniqueIndex:uniq_attempts_live,where:status IN ('started','in_progress','paused')"`
	Exam                Exam           `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	CandidateID         uint           `json:"candidate_id" gorm:"not null;index;uniqueIndex:uniq_attempts_live,where:status IN ('started','in_progress','paused')"`
	Candidate           Candidate      `json:"candidate,omitempty" gorm:"foreignKey:CandidateID"`
	Status              AttemptStatus  `json:"status" gorm:"type:varchar(32);not null;default:'started';index:idx_attempts_exam_status"`
	StartedAt           time.Time      `json:"started_at" gorm:"not null"`
	BaseDurationSeconds int            `json:"base_duration_seconds" gorm:"not null"`
	ExtraTimeSeconds    int            `json:"extra_time_seconds" gorm:"not null;default:0"`
	ResumeCount         int            `json:"resume_count" gorm:"not null;default:0"`
	LastActivityAt      time.Time      `json:"last_activity_at"`
	PausedAt            *time.Time     `json:"paused_at,omitempty"`
	PausedSecondsTotal  int            `json:"paused_seconds_total" gorm:"not null;default:0"`
	EndedAt             *time.Time     `json:"ended_at,omitempty"`
	TerminationReason   *string        `json:"termination_reason,omitempty"`
	ExpiryReason        *ExpiryReason  `json:"expiry_reason,omitempty" gorm:"type:varchar(32)"`
	Version             int64          `json:"version" gorm:"not null;default:1"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

// ActiveStatuses lists the states in which a session is still live.
var ActiveStatuses = []AttemptStatus{
	AttemptStarted,
	AttemptInProgress,
	AttemptPaused,
}

func (s AttemptStatus) Terminal() bool {
	switch s {
	case AttemptSubmitted, AttemptForceSubmitted, AttemptTerminated, AttemptExpired, AttemptCancelled:
		return true
	}
	return false
}

func (a *Attempt) IsTerminal() bool { return a.Status.Terminal() }

// CanForceEnd reports whether an admin force-end (or proctor termination) is
// still meaningful for the attempt.
func (a *Attempt) CanForceEnd() bool { return !a.IsTerminal() }

// CanResume reports whether the resume override applies: a paused attempt, or
// a started one that never got going.
func (a *Attempt) CanResume() bool {
	return a.Status == AttemptPaused || a.Status == AttemptStarted
}

// CanAddTime reports whether extra time can still be granted.
func (a *Attempt) CanAddTime() bool { return !a.IsTerminal() }
