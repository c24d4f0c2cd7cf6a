package service

import (
	"errors"
	"time"

	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AttemptQueryService serves the read-only control-list and detail queries.
// Listing is lock-free; remaining time and capability flags are derived from
// the row as read, stamped with the computation time.
type AttemptQueryService interface {
	ListAttemptControl(filter repository.AttemptControlFilter) (*dto.AttemptControlListDTO, error)
	GetAttemptSummary(attemptID uint) (*dto.AttemptSummaryDTO, error)
}

type attemptQueryService struct {
	attemptRepo repository.AttemptRepository
	timer       TimerService
	clock       func() time.Time
}

func NewAttemptQueryService(attemptRepo repository.AttemptRepository, timer TimerService) AttemptQueryService {
	return &attemptQueryService{
		attemptRepo: attemptRepo,
		timer:       timer,
		clock:       time.Now,
	}
}

func (s *attemptQueryService) ListAttemptControl(filter repository.AttemptControlFilter) (*dto.AttemptControlListDTO, error) {
	attempts, total, err := s.attemptRepo.ListControl(filter)
	if err != nil {
		log.Error().Err(err).Msg("ListAttemptControl: repository error")
		return nil, err
	}
	now := s.clock()
	items := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for i := range attempts {
		items = append(items, s.buildSummary(&attempts[i], now))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	return &dto.AttemptControlListDTO{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (s *attemptQueryService) GetAttemptSummary(attemptID uint) (*dto.AttemptSummaryDTO, error) {
	attempt, err := s.attemptRepo.FindByIDWithExam(attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	summary := s.buildSummary(attempt, s.clock())
	return &summary, nil
}

func (s *attemptQueryService) buildSummary(attempt *model.Attempt, now time.Time) dto.AttemptSummaryDTO {
	var summary dto.AttemptSummaryDTO
	if err := copier.Copy(&summary, attempt); err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Failed to map attempt to summary DTO")
	}
	summary.Status = string(attempt.Status)
	summary.ExamTitle = attempt.Exam.Title
	summary.CandidateName = attempt.Candidate.FullName
	if attempt.ExpiryReason != nil {
		reason := string(*attempt.ExpiryReason)
		summary.ExpiryReason = &reason
	}
	summary.RemainingSeconds = s.timer.RemainingSeconds(attempt, now)
	summary.CanForceEnd = attempt.CanForceEnd()
	summary.CanResume = attempt.CanResume()
	summary.CanAddTime = attempt.CanAddTime()
	summary.ComputedAt = now
	return summary
}
