package dto

import "time"

// StartAttemptRequest opens a timed session for a candidate on an exam.
// Candidate identity will come from the auth layer once it fronts this API.
type StartAttemptRequest struct {
	CandidateID uint `json:"candidate_id" binding:"required"`
}

// HeartbeatRequest carries the client-side timestamp of the liveness ping.
// Omitted timestamps default to the server clock.
type HeartbeatRequest struct {
	Timestamp *time.Time `json:"timestamp"`
}

// ProctorEventInput is one integrity signal from the capture pipeline.
type ProctorEventInput struct {
	EventType int16     `json:"event_type" binding:"required"`
	Timestamp time.Time `json:"timestamp" binding:"required"`
}

// ProctorEventBatchRequest ingests a batch of signals for one attempt.
type ProctorEventBatchRequest struct {
	Events []ProctorEventInput `json:"events" binding:"required,min=1,dive"`
}

// ForceEndRequest ends an attempt on behalf of an administrator.
type ForceEndRequest struct {
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

// TerminateRequest is the proctor-initiated flavor of force-end; here the
// reason is mandatory because it lands in the candidate-facing record.
type TerminateRequest struct {
	Reason         string `json:"reason" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

type ResumeAttemptRequest struct {
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

type AddTimeRequest struct {
	ExtraMinutes   int    `json:"extra_minutes" binding:"required,min=1,max=480"`
	Reason         string `json:"reason" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

type AllowNewAttemptRequest struct {
	CandidateID    uint   `json:"candidate_id" binding:"required"`
	ExamID         uint   `json:"exam_id" binding:"required"`
	Reason         string `json:"reason" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ExamCreateDTO is the minimal collaborator edge for scheduling an exam.
type ExamCreateDTO struct {
	Title           string    `json:"title" binding:"required"`
	Description     string    `json:"description"`
	ScheduleMode    string    `json:"schedule_mode" binding:"required,oneof=flexible fixed"`
	StartAt         time.Time `json:"start_at" binding:"required"`
	EndAt           time.Time `json:"end_at" binding:"required"`
	GraceMinutes    int       `json:"grace_minutes" binding:"omitempty,min=1"`
	DurationSeconds int       `json:"duration_seconds" binding:"required,gt=0"`
	MaxAttempts     int       `json:"max_attempts" binding:"omitempty,min=0"`
}

type CandidateCreateDTO struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	BatchID  *uint  `json:"batch_id"`
}
