package service

import "errors"

// Error taxonomy of the attempt core. Controllers map these to HTTP statuses;
// messages are specific because administrators act on them directly.
var (
	ErrAttemptNotFound        = errors.New("attempt not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrConcurrentModification = errors.New("attempt was modified concurrently, please retry")
	ErrInvalidExtraTimeRange  = errors.New("extra time must be between 1 and 480 minutes")
	ErrExamWindowClosed       = errors.New("exam window is closed")
	ErrAttemptLimitReached    = errors.New("candidate has reached the attempt limit for this exam")
	ErrAttemptAlreadyActive   = errors.New("candidate already has an active attempt for this exam")
	ErrReasonRequired         = errors.New("a reason is required for this override")
	ErrUnknownEventType       = errors.New("unknown proctor event type")
)

// errAlreadyTerminal is internal: a force-end against a finished attempt is a
// benign no-op that returns the existing terminal state, not a failure.
var errAlreadyTerminal = errors.New("attempt already terminal")
