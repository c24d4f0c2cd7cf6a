package service

import (
	"errors"
	"fmt"

	"github.com/examguard/examguard/internal/dto"
	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProctorEventService is the ingestion edge of the event log. The capture
// pipeline owns the stream; this core validates codes against the closed enum
// and appends. Unknown codes fail the batch instead of falling through the
// scoring tables silently.
type ProctorEventService interface {
	Ingest(attemptID uint, inputs []dto.ProctorEventInput) (int, error)
}

type proctorEventService struct {
	attemptRepo repository.AttemptRepository
	eventRepo   repository.ProctorEventRepository
}

func NewProctorEventService(attemptRepo repository.AttemptRepository, eventRepo repository.ProctorEventRepository) ProctorEventService {
	return &proctorEventService{attemptRepo: attemptRepo, eventRepo: eventRepo}
}

func (s *proctorEventService) Ingest(attemptID uint, inputs []dto.ProctorEventInput) (int, error) {
	if _, err := s.attemptRepo.FindByID(attemptID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAttemptNotFound
		}
		return 0, err
	}
	events := make([]model.ProctorEvent, 0, len(inputs))
	for _, input := range inputs {
		eventType := model.ProctorEventType(input.EventType)
		if !eventType.Valid() {
			return 0, fmt.Errorf("%w: code %d", ErrUnknownEventType, input.EventType)
		}
		events = append(events, model.ProctorEvent{
			AttemptID: attemptID,
			EventType: eventType,
			Timestamp: input.Timestamp,
		})
	}
	if err := s.eventRepo.Append(events); err != nil {
		return 0, err
	}
	log.Debug().Uint("attemptID", attemptID).Int("count", len(events)).Msg("Proctor events ingested")
	return len(events), nil
}
