package service

import (
	"time"

	"github.com/examguard/examguard/config"
	"github.com/examguard/examguard/internal/model"
)

// TimerService is pure countdown arithmetic over an attempt's timing fields
// and a caller-supplied clock. It holds no mutable state.
type TimerService interface {
	ActiveElapsedSeconds(attempt *model.Attempt, now time.Time) int
	RemainingSeconds(attempt *model.Attempt, now time.Time) int
	// ShouldExpire reports whether the attempt must transition to Expired at
	// now, and with which classification.
	ShouldExpire(attempt *model.Attempt, exam *model.Exam, now time.Time) (bool, model.ExpiryReason)
	// ValidateStartWindow rejects starts outside the exam's permitted window.
	ValidateStartWindow(exam *model.Exam, now time.Time) error
}

type timerService struct {
	disconnectThreshold time.Duration
	defaultGraceMinutes int
}

func NewTimerService(cfg *config.Config) TimerService {
	return &timerService{
		disconnectThreshold: time.Duration(cfg.Proctoring.DisconnectThresholdSeconds) * time.Second,
		defaultGraceMinutes: cfg.Proctoring.GraceMinutes,
	}
}

// ActiveElapsedSeconds is wall time since start minus every paused stretch,
// including a pause still in flight. Never negative.
func (s *timerService) ActiveElapsedSeconds(attempt *model.Attempt, now time.Time) int {
	end := now
	if attempt.EndedAt != nil && attempt.EndedAt.Before(now) {
		end = *attempt.EndedAt
	}
	if !end.After(attempt.StartedAt) {
		return 0
	}
	elapsed := int(end.Sub(attempt.StartedAt).Seconds())
	paused := attempt.PausedSecondsTotal
	if attempt.Status == model.AttemptPaused && attempt.PausedAt != nil && end.After(*attempt.PausedAt) {
		paused += int(end.Sub(*attempt.PausedAt).Seconds())
	}
	elapsed -= paused
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

func (s *timerService) RemainingSeconds(attempt *model.Attempt, now time.Time) int {
	remaining := attempt.BaseDurationSeconds + attempt.ExtraTimeSeconds - s.ActiveElapsedSeconds(attempt, now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (s *timerService) ShouldExpire(attempt *model.Attempt, exam *model.Exam, now time.Time) (bool, model.ExpiryReason) {
	if attempt.IsTerminal() {
		return false, ""
	}
	remaining := s.RemainingSeconds(attempt, now)
	windowClosed := exam != nil && !exam.EndAt.IsZero() && now.After(exam.EndAt)

	if remaining > 0 {
		if windowClosed {
			return true, model.ExpiryExamWindowClosed
		}
		return false, ""
	}

	// The timer hit zero. If the exam window closed before the timer deadline,
	// the window is what ended the session.
	if windowClosed {
		deadline := attempt.StartedAt.Add(time.Duration(
			attempt.BaseDurationSeconds+attempt.ExtraTimeSeconds+attempt.PausedSecondsTotal) * time.Second)
		if exam.EndAt.Before(deadline) {
			return true, model.ExpiryExamWindowClosed
		}
	}
	if now.Sub(attempt.LastActivityAt) < s.disconnectThreshold {
		return true, model.ExpiryTimerActive
	}
	return true, model.ExpiryTimerDisconnected
}

func (s *timerService) ValidateStartWindow(exam *model.Exam, now time.Time) error {
	if now.Before(exam.StartAt) {
		return ErrExamWindowClosed
	}
	latest := exam.EndAt
	if exam.ScheduleMode == model.ScheduleFixed {
		grace := exam.GraceMinutes
		if grace <= 0 {
			grace = s.defaultGraceMinutes
		}
		graceEnd := exam.StartAt.Add(time.Duration(grace) * time.Minute)
		if graceEnd.Before(latest) {
			latest = graceEnd
		}
	}
	if now.After(latest) {
		return ErrExamWindowClosed
	}
	return nil
}
