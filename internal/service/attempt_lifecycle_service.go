package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AttemptLifecycleService is the attempt state machine: the single writer of an
// attempt's mutable fields. Every transition is a version-checked update; a
// stale write is retried once against re-read state before surfacing
// ErrConcurrentModification.
type AttemptLifecycleService interface {
	Start(examID, candidateID uint, now time.Time) (*model.Attempt, error)
	Heartbeat(attemptID uint, at time.Time) (*model.Attempt, error)
	Pause(attemptID uint, now time.Time) (*model.Attempt, error)
	Submit(attemptID uint, now time.Time) (*model.Attempt, error)

	// Override-invoked transitions. They run inside the ledger's transaction so
	// the grant and the mutation commit together.
	ResumeOverride(tx *gorm.DB, attemptID uint, now time.Time) (*model.Attempt, error)
	// ForceEnd moves any non-terminal attempt to ForceSubmitted, or Terminated
	// when asTermination is set. On an already-terminal attempt it returns the
	// current state with applied=false and no error.
	ForceEnd(tx *gorm.DB, attemptID uint, reason string, asTermination bool, now time.Time) (attempt *model.Attempt, applied bool, err error)
	AddTime(tx *gorm.DB, attemptID uint, extraMinutes int, now time.Time) (*model.Attempt, error)
	// Expire is reserved for the sweeper / timer evaluation path.
	Expire(attemptID uint, reason model.ExpiryReason, now time.Time) (*model.Attempt, error)
}

type attemptLifecycleService struct {
	attemptRepo repository.AttemptRepository
	examRepo    repository.ExamRepository
	grantRepo   repository.OverrideGrantRepository
	timer       TimerService
	db          *gorm.DB
}

func NewAttemptLifecycleService(
	attemptRepo repository.AttemptRepository,
	examRepo repository.ExamRepository,
	grantRepo repository.OverrideGrantRepository,
	timer TimerService,
	db *gorm.DB,
) AttemptLifecycleService {
	return &attemptLifecycleService{
		attemptRepo: attemptRepo,
		examRepo:    examRepo,
		grantRepo:   grantRepo,
		timer:       timer,
		db:          db,
	}
}

// errNoop tells applyTransition the guard passed but nothing changed, so no
// write (and no version bump) should happen.
var errNoop = errors.New("no-op transition")

// applyTransition reads the attempt, runs the guarded mutation, and persists it
// with the version check. A lost race re-reads and re-evaluates the guard once.
func (s *attemptLifecycleService) applyTransition(tx *gorm.DB, attemptID uint, mutate func(*model.Attempt) error) (*model.Attempt, error) {
	for try := 0; try < 2; try++ {
		attempt, err := s.attemptRepo.FindByID(attemptID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		if err != nil {
			return nil, err
		}
		expected := attempt.Version
		if err := mutate(attempt); err != nil {
			if errors.Is(err, errNoop) || errors.Is(err, errAlreadyTerminal) {
				return attempt, err
			}
			return nil, err
		}
		ok, err := s.attemptRepo.UpdateWithVersion(tx, attempt, expected)
		if err != nil {
			return nil, err
		}
		if ok {
			return attempt, nil
		}
		log.Warn().Uint("attemptID", attemptID).Int64("staleVersion", expected).Msg("Attempt version conflict, re-evaluating transition")
	}
	return nil, ErrConcurrentModification
}

// foldPause folds an in-flight pause into the accumulated total. Every
// transition out of Paused must call it before changing status, or the
// open-ended pause stretch would be lost from the elapsed-time math.
func foldPause(attempt *model.Attempt, now time.Time) {
	if attempt.Status == model.AttemptPaused && attempt.PausedAt != nil {
		if now.After(*attempt.PausedAt) {
			attempt.PausedSecondsTotal += int(now.Sub(*attempt.PausedAt).Seconds())
		}
		attempt.PausedAt = nil
	}
}

func (s *attemptLifecycleService) Start(examID, candidateID uint, now time.Time) (*model.Attempt, error) {
	exam, err := s.examRepo.FindByID(examID)
	if err != nil {
		return nil, fmt.Errorf("exam %d not found: %w", examID, err)
	}
	if err := s.timer.ValidateStartWindow(exam, now); err != nil {
		return nil, err
	}

	attempt := &model.Attempt{
		ExamID:              examID,
		CandidateID:         candidateID,
		Status:              model.AttemptStarted,
		StartedAt:           now,
		BaseDurationSeconds: exam.DurationSeconds,
		LastActivityAt:      now,
		Version:             1,
	}

	err = repository.Atomic(s.db, func(tx *gorm.DB) error {
		active, err := s.attemptRepo.FindActiveByCandidateAndExam(tx, candidateID, examID)
		if err != nil {
			return err
		}
		count, err := s.attemptRepo.CountByCandidateAndExam(tx, candidateID, examID)
		if err != nil {
			return err
		}
		overLimit := exam.MaxAttempts > 0 && count >= int64(exam.MaxAttempts)
		if active != nil || overLimit {
			// An unconsumed allow-new-attempt grant bypasses both constraints
			// exactly once; consumption happens in the same transaction as the
			// attempt creation it authorizes.
			grant, err := s.grantRepo.FindUnconsumedAllowNew(tx, candidateID, examID)
			if err != nil {
				return err
			}
			if grant == nil {
				if active != nil {
					return ErrAttemptAlreadyActive
				}
				return ErrAttemptLimitReached
			}
			consumed, err := s.grantRepo.MarkConsumed(tx, grant.ID)
			if err != nil {
				return err
			}
			if !consumed {
				// A racing start spent the grant between our read and the
				// conditional update. This caller loses.
				if active != nil {
					return ErrAttemptAlreadyActive
				}
				return ErrAttemptLimitReached
			}
			log.Info().Uint("candidateID", candidateID).Uint("examID", examID).Uint("grantID", grant.ID).
				Msg("Start authorized by allow-new-attempt grant")
		}
		if err := s.attemptRepo.Create(tx, attempt); err != nil {
			// The partial unique index on live attempts catches the race the
			// read could not see: a concurrent start that committed first.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAttemptAlreadyActive
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("attemptID", attempt.ID).Uint("examID", examID).Uint("candidateID", candidateID).Msg("Attempt started")
	return attempt, nil
}

func (s *attemptLifecycleService) Heartbeat(attemptID uint, at time.Time) (*model.Attempt, error) {
	attempt, err := s.applyTransition(nil, attemptID, func(a *model.Attempt) error {
		if a.IsTerminal() {
			return fmt.Errorf("%w: heartbeat on %s attempt", ErrInvalidStateTransition, a.Status)
		}
		// Heartbeats are monotonic: an out-of-order timestamp is discarded
		// without touching the row.
		if !at.After(a.LastActivityAt) {
			return errNoop
		}
		a.LastActivityAt = at
		return nil
	})
	if errors.Is(err, errNoop) {
		return attempt, nil
	}
	return attempt, err
}

func (s *attemptLifecycleService) Pause(attemptID uint, now time.Time) (*model.Attempt, error) {
	return s.applyTransition(nil, attemptID, func(a *model.Attempt) error {
		if a.Status != model.AttemptStarted && a.Status != model.AttemptInProgress {
			return fmt.Errorf("%w: cannot pause a %s attempt", ErrInvalidStateTransition, a.Status)
		}
		paused := now
		a.Status = model.AttemptPaused
		a.PausedAt = &paused
		return nil
	})
}

func (s *attemptLifecycleService) Submit(attemptID uint, now time.Time) (*model.Attempt, error) {
	return s.applyTransition(nil, attemptID, func(a *model.Attempt) error {
		if a.Status != model.AttemptInProgress && a.Status != model.AttemptPaused {
			return fmt.Errorf("%w: cannot submit a %s attempt", ErrInvalidStateTransition, a.Status)
		}
		foldPause(a, now)
		ended := now
		a.Status = model.AttemptSubmitted
		a.EndedAt = &ended
		return nil
	})
}

func (s *attemptLifecycleService) ResumeOverride(tx *gorm.DB, attemptID uint, now time.Time) (*model.Attempt, error) {
	return s.applyTransition(tx, attemptID, func(a *model.Attempt) error {
		switch a.Status {
		case model.AttemptPaused:
			foldPause(a, now)
		case model.AttemptStarted:
			// A session that never got going is made whole: the remaining-time
			// baseline restarts from the resume instant.
			a.StartedAt = now
		default:
			return fmt.Errorf("%w: cannot resume a %s attempt", ErrInvalidStateTransition, a.Status)
		}
		a.Status = model.AttemptInProgress
		a.ResumeCount++
		if now.After(a.LastActivityAt) {
			a.LastActivityAt = now
		}
		return nil
	})
}

func (s *attemptLifecycleService) ForceEnd(tx *gorm.DB, attemptID uint, reason string, asTermination bool, now time.Time) (*model.Attempt, bool, error) {
	attempt, err := s.applyTransition(tx, attemptID, func(a *model.Attempt) error {
		if a.IsTerminal() {
			return errAlreadyTerminal
		}
		foldPause(a, now)
		ended := now
		a.EndedAt = &ended
		if asTermination {
			a.Status = model.AttemptTerminated
		} else {
			a.Status = model.AttemptForceSubmitted
		}
		if reason != "" {
			r := reason
			a.TerminationReason = &r
		}
		return nil
	})
	if errors.Is(err, errAlreadyTerminal) {
		return attempt, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return attempt, true, nil
}

func (s *attemptLifecycleService) AddTime(tx *gorm.DB, attemptID uint, extraMinutes int, now time.Time) (*model.Attempt, error) {
	return s.applyTransition(tx, attemptID, func(a *model.Attempt) error {
		if a.IsTerminal() {
			return fmt.Errorf("%w: cannot add time to a %s attempt", ErrInvalidStateTransition, a.Status)
		}
		a.ExtraTimeSeconds += extraMinutes * 60
		return nil
	})
}

func (s *attemptLifecycleService) Expire(attemptID uint, reason model.ExpiryReason, now time.Time) (*model.Attempt, error) {
	attempt, err := s.applyTransition(nil, attemptID, func(a *model.Attempt) error {
		if a.IsTerminal() {
			// A sweeper racing an admin override loses benignly.
			return errAlreadyTerminal
		}
		foldPause(a, now)
		ended := now
		r := reason
		a.Status = model.AttemptExpired
		a.EndedAt = &ended
		a.ExpiryReason = &r
		return nil
	})
	if errors.Is(err, errAlreadyTerminal) {
		return attempt, nil
	}
	return attempt, err
}
