package model

import (
	"time"

	"gorm.io/datatypes"
)

// OverrideType identifies the administrative action a grant records.
type OverrideType string

const (
	OverrideForceEnd        OverrideType = "force_end"
	OverrideResume          OverrideType = "resume"
	OverrideAddTime         OverrideType = "add_time"
	OverrideAllowNewAttempt OverrideType = "allow_new_attempt"
)

// OverrideGrant is the append-only ledger of administrative actions against
// attempts. Rows are created atomically with the attempt mutation they
// authorize and are never updated afterwards (Consumed flips exactly once for
// allow-new-attempt grants) and never deleted.
type OverrideGrant struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	AttemptID      *uint          `json:"attempt_id,omitempty" gorm:"index"` // nil for allow_new_attempt
	ExamID         uint           `json:"exam_id" gorm:"not null;index:idx_grants_exam_candidate"`
	CandidateID    uint           `json:"candidate_id" gorm:"not null;index:idx_grants_exam_candidate"`
	Type           OverrideType   `json:"type" gorm:"type:varchar(32);not null;index"`
	Reason         string         `json:"reason,omitempty"`
	GrantedBy      string         `json:"granted_by" gorm:"not null"`
	GrantedAt      time.Time      `json:"granted_at" gorm:"not null"`
	MinutesAdded   int            `json:"minutes_added,omitempty"`
	IdempotencyKey string         `json:"idempotency_key" gorm:"uniqueIndex;size:64;not null"`
	Consumed       bool           `json:"consumed" gorm:"not null;default:false"`
	Result         datatypes.JSON `json:"result,omitempty" gorm:"type:jsonb"` // response replayed on key re-submission
	CreatedAt      time.Time      `json:"created_at"`
}
