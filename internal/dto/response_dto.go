package dto

import "time"

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// AttemptSummaryDTO is one row of the attempt-control list. Remaining time and
// the capability flags are computed against the serving clock (ComputedAt), so
// a poller at interval T observes at most T of staleness.
type AttemptSummaryDTO struct {
	ID                uint       `json:"id"`
	ExamID            uint       `json:"exam_id"`
	ExamTitle         string     `json:"exam_title,omitempty"`
	CandidateID       uint       `json:"candidate_id"`
	CandidateName     string     `json:"candidate_name,omitempty"`
	Status            string     `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	RemainingSeconds  int        `json:"remaining_seconds"`
	ExtraTimeSeconds  int        `json:"extra_time_seconds"`
	ResumeCount       int        `json:"resume_count"`
	LastActivityAt    time.Time  `json:"last_activity_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	TerminationReason *string    `json:"termination_reason,omitempty"`
	ExpiryReason      *string    `json:"expiry_reason,omitempty"`
	CanForceEnd       bool       `json:"can_force_end"`
	CanResume         bool       `json:"can_resume"`
	CanAddTime        bool       `json:"can_add_time"`
	ComputedAt        time.Time  `json:"computed_at"`
}

type AttemptControlListDTO struct {
	Items      []AttemptSummaryDTO `json:"items"`
	TotalCount int64               `json:"total_count"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
}

type RemainingTimeDTO struct {
	AttemptID        uint      `json:"attempt_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
	ComputedAt       time.Time `json:"computed_at"`
}

type OverrideGrantDTO struct {
	ID             uint      `json:"id"`
	AttemptID      *uint     `json:"attempt_id,omitempty"`
	ExamID         uint      `json:"exam_id"`
	CandidateID    uint      `json:"candidate_id"`
	Type           string    `json:"type"`
	Reason         string    `json:"reason,omitempty"`
	GrantedBy      string    `json:"granted_by"`
	GrantedAt      time.Time `json:"granted_at"`
	MinutesAdded   int       `json:"minutes_added,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	Consumed       bool      `json:"consumed"`
}

type RiskAssessmentDTO struct {
	AttemptID          uint      `json:"attempt_id"`
	FaceDetectionScore float64   `json:"face_detection_score"`
	EyeTrackingScore   float64   `json:"eye_tracking_score"`
	BehaviorScore      float64   `json:"behavior_score"`
	EnvironmentScore   float64   `json:"environment_score"`
	OverallRiskScore   float64   `json:"overall_risk_score"`
	RiskLevel          string    `json:"risk_level"`
	Confidence         string    `json:"confidence"` // "full", or "low" when event data was unavailable
	ComputedAt         time.Time `json:"computed_at"`
}

type TriageRecommendationDTO struct {
	AttemptID     uint     `json:"attempt_id"`
	CandidateName string   `json:"candidate_name"`
	ExamTitle     string   `json:"exam_title"`
	RiskScore     float64  `json:"risk_score"`
	RiskLevel     string   `json:"risk_level"`
	Reasons       []string `json:"reasons"`
}

type IntegrityReportDTO struct {
	AttemptID  uint              `json:"attempt_id"`
	Assessment RiskAssessmentDTO `json:"assessment"`
	Narrative  string            `json:"narrative"`
	Generated  bool              `json:"generated"` // false when the deterministic fallback was used
}

type ExamResponseDTO struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	ScheduleMode    string    `json:"schedule_mode"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	GraceMinutes    int       `json:"grace_minutes"`
	DurationSeconds int       `json:"duration_seconds"`
	MaxAttempts     int       `json:"max_attempts"`
	CreatedAt       time.Time `json:"created_at"`
}

type CandidateResponseDTO struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	BatchID  *uint  `json:"batch_id,omitempty"`
}
