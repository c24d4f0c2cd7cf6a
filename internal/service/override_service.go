package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OverrideLedgerService records administrative actions against attempts and
// applies them through the state machine. Each operation is idempotent under a
// caller-supplied key: a replayed key returns the stored result of the original
// call without re-mutating anything. The grant row and the attempt mutation it
// authorizes always commit in one transaction.
type OverrideLedgerService interface {
	ForceEndAttempt(attemptID uint, reason, grantedBy, idempotencyKey string) (*dto.AttemptSummaryDTO, error)
	// TerminateAttempt is the proctor-initiated flavor of force-end: same guard
	// logic, distinct terminal outcome.
	TerminateAttempt(attemptID uint, reason, grantedBy, idempotencyKey string) (*dto.AttemptSummaryDTO, error)
	ResumeAttempt(attemptID uint, reason, grantedBy, idempotencyKey string) (*dto.RemainingTimeDTO, error)
	AddTimeToAttempt(attemptID uint, extraMinutes int, reason, grantedBy, idempotencyKey string) (*dto.RemainingTimeDTO, error)
	// AllowNewAttempt authorizes exactly one future start call to bypass the
	// attempt-count and single-active-attempt constraints. It creates no
	// attempt itself.
	AllowNewAttempt(candidateID, examID uint, reason, grantedBy, idempotencyKey string) (*dto.OverrideGrantDTO, error)
}

type overrideLedgerService struct {
	attemptRepo repository.AttemptRepository
	grantRepo   repository.OverrideGrantRepository
	lifecycle   AttemptLifecycleService
	query       AttemptQueryService
	timer       TimerService
	db          *gorm.DB
	clock       func() time.Time
}

func NewOverrideLedgerService(
	attemptRepo repository.AttemptRepository,
	grantRepo repository.OverrideGrantRepository,
	lifecycle AttemptLifecycleService,
	query AttemptQueryService,
	timer TimerService,
	db *gorm.DB,
) OverrideLedgerService {
	return &overrideLedgerService{
		attemptRepo: attemptRepo,
		grantRepo:   grantRepo,
		lifecycle:   lifecycle,
		query:       query,
		timer:       timer,
		db:          db,
		clock:       time.Now,
	}
}

func ensureIdempotencyKey(key string) string {
	if key != "" {
		return key
	}
	// Generated keys still satisfy the unique column; they just opt the caller
	// out of replay protection.
	return uuid.NewString()
}

func marshalResult(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal override grant result")
		return nil
	}
	return datatypes.JSON(raw)
}

func (s *overrideLedgerService) ForceEndAttempt(attemptID uint, reason, grantedBy, key string) (*dto.AttemptSummaryDTO, error) {
	return s.endAttempt(attemptID, reason, grantedBy, key, false)
}

func (s *overrideLedgerService) TerminateAttempt(attemptID uint, reason, grantedBy, key string) (*dto.AttemptSummaryDTO, error) {
	return s.endAttempt(attemptID, reason, grantedBy, key, true)
}

func (s *overrideLedgerService) endAttempt(attemptID uint, reason, grantedBy, key string, asTermination bool) (*dto.AttemptSummaryDTO, error) {
	key = ensureIdempotencyKey(key)
	if prior, err := s.grantRepo.FindByIdempotencyKey(key); err != nil {
		return nil, err
	} else if prior != nil {
		// The attempt is terminal and therefore immutable; the current summary
		// is the original result.
		log.Info().Str("idempotencyKey", key).Uint("attemptID", attemptID).Msg("ForceEnd replayed, returning prior outcome")
		return s.query.GetAttemptSummary(attemptID)
	}

	now := s.clock()
	var applied bool
	err := repository.Atomic(s.db, func(tx *gorm.DB) error {
		attempt, ok, err := s.lifecycle.ForceEnd(tx, attemptID, reason, asTermination, now)
		if err != nil {
			return err
		}
		applied = ok
		if !ok {
			// Already terminal: benign idempotent outcome, and no second grant
			// row joins the audit trail.
			return nil
		}
		grant := &model.OverrideGrant{
			AttemptID:      &attempt.ID,
			ExamID:         attempt.ExamID,
			CandidateID:    attempt.CandidateID,
			Type:           model.OverrideForceEnd,
			Reason:         reason,
			GrantedBy:      grantedBy,
			GrantedAt:      now,
			IdempotencyKey: key,
			Result: marshalResult(map[string]any{
				"attempt_id": attempt.ID,
				"status":     attempt.Status,
				"ended_at":   attempt.EndedAt,
			}),
		}
		return s.grantRepo.Create(tx, grant)
	})
	if err != nil {
		return nil, err
	}
	if applied {
		log.Info().Uint("attemptID", attemptID).Bool("termination", asTermination).Str("grantedBy", grantedBy).Msg("Attempt force-ended")
	}
	return s.query.GetAttemptSummary(attemptID)
}

func (s *overrideLedgerService) ResumeAttempt(attemptID uint, reason, grantedBy, key string) (*dto.RemainingTimeDTO, error) {
	key = ensureIdempotencyKey(key)
	if prior, err := s.grantRepo.FindByIdempotencyKey(key); err != nil {
		return nil, err
	} else if prior != nil {
		return replayRemaining(prior, key)
	}

	now := s.clock()
	var result dto.RemainingTimeDTO
	err := repository.Atomic(s.db, func(tx *gorm.DB) error {
		attempt, err := s.lifecycle.ResumeOverride(tx, attemptID, now)
		if err != nil {
			return err
		}
		result = dto.RemainingTimeDTO{
			AttemptID:        attempt.ID,
			RemainingSeconds: s.timer.RemainingSeconds(attempt, now),
			ComputedAt:       now,
		}
		grant := &model.OverrideGrant{
			AttemptID:      &attempt.ID,
			ExamID:         attempt.ExamID,
			CandidateID:    attempt.CandidateID,
			Type:           model.OverrideResume,
			Reason:         reason,
			GrantedBy:      grantedBy,
			GrantedAt:      now,
			IdempotencyKey: key,
			Result:         marshalResult(result),
		}
		return s.grantRepo.Create(tx, grant)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("attemptID", attemptID).Int("remainingSeconds", result.RemainingSeconds).Str("grantedBy", grantedBy).Msg("Attempt resumed by override")
	return &result, nil
}

func (s *overrideLedgerService) AddTimeToAttempt(attemptID uint, extraMinutes int, reason, grantedBy, key string) (*dto.RemainingTimeDTO, error) {
	if extraMinutes < 1 || extraMinutes > 480 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidExtraTimeRange, extraMinutes)
	}
	key = ensureIdempotencyKey(key)
	if prior, err := s.grantRepo.FindByIdempotencyKey(key); err != nil {
		return nil, err
	} else if prior != nil {
		return replayRemaining(prior, key)
	}

	now := s.clock()
	var result dto.RemainingTimeDTO
	err := repository.Atomic(s.db, func(tx *gorm.DB) error {
		attempt, err := s.lifecycle.AddTime(tx, attemptID, extraMinutes, now)
		if err != nil {
			return err
		}
		result = dto.RemainingTimeDTO{
			AttemptID:        attempt.ID,
			RemainingSeconds: s.timer.RemainingSeconds(attempt, now),
			ComputedAt:       now,
		}
		grant := &model.OverrideGrant{
			AttemptID:      &attempt.ID,
			ExamID:         attempt.ExamID,
			CandidateID:    attempt.CandidateID,
			Type:           model.OverrideAddTime,
			Reason:         reason,
			GrantedBy:      grantedBy,
			GrantedAt:      now,
			MinutesAdded:   extraMinutes,
			IdempotencyKey: key,
			Result:         marshalResult(result),
		}
		return s.grantRepo.Create(tx, grant)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Uint("attemptID", attemptID).Int("extraMinutes", extraMinutes).Str("grantedBy", grantedBy).Msg("Extra time granted")
	return &result, nil
}

func (s *overrideLedgerService) AllowNewAttempt(candidateID, examID uint, reason, grantedBy, key string) (*dto.OverrideGrantDTO, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	key = ensureIdempotencyKey(key)
	if prior, err := s.grantRepo.FindByIdempotencyKey(key); err != nil {
		return nil, err
	} else if prior != nil {
		log.Info().Str("idempotencyKey", key).Msg("AllowNewAttempt replayed, returning prior grant")
		return grantToDTO(prior), nil
	}

	grant := &model.OverrideGrant{
		ExamID:         examID,
		CandidateID:    candidateID,
		Type:           model.OverrideAllowNewAttempt,
		Reason:         reason,
		GrantedBy:      grantedBy,
		GrantedAt:      s.clock(),
		IdempotencyKey: key,
	}
	if err := s.grantRepo.Create(nil, grant); err != nil {
		return nil, err
	}
	log.Info().Uint("candidateID", candidateID).Uint("examID", examID).Str("grantedBy", grantedBy).Msg("New attempt authorized")
	return grantToDTO(grant), nil
}

// replayRemaining decodes the remaining-time result stored with the original
// grant, so a retried request sees exactly what the first one saw.
func replayRemaining(grant *model.OverrideGrant, key string) (*dto.RemainingTimeDTO, error) {
	var result dto.RemainingTimeDTO
	if err := json.Unmarshal(grant.Result, &result); err != nil {
		return nil, fmt.Errorf("stored result for idempotency key %s is unreadable: %w", key, err)
	}
	log.Info().Str("idempotencyKey", key).Str("type", string(grant.Type)).Msg("Override replayed, returning stored result")
	return &result, nil
}

func grantToDTO(grant *model.OverrideGrant) *dto.OverrideGrantDTO {
	return &dto.OverrideGrantDTO{
		ID:             grant.ID,
		AttemptID:      grant.AttemptID,
		ExamID:         grant.ExamID,
		CandidateID:    grant.CandidateID,
		Type:           string(grant.Type),
		Reason:         grant.Reason,
		GrantedBy:      grant.GrantedBy,
		GrantedAt:      grant.GrantedAt,
		MinutesAdded:   grant.MinutesAdded,
		IdempotencyKey: grant.IdempotencyKey,
		Consumed:       grant.Consumed,
	}
}
