package repository

import (
	"github.com/examguard/examguard/internal/model"
	"gorm.io/gorm"
)

type ProctorEventRepository interface {
	Append(events []model.ProctorEvent) error
	CountsByAttempt(attemptID uint) (map[model.ProctorEventType]int, error)
	CountsForAttempts(attemptIDs []uint) (map[uint]map[model.ProctorEventType]int, error)
}

type proctorEventRepository struct {
	db *gorm.DB
}

func NewProctorEventRepository(db *gorm.DB) ProctorEventRepository {
	return &proctorEventRepository{db: db}
}

func (r *proctorEventRepository) Append(events []model.ProctorEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.Create(&events).Error
}

type eventCountRow struct {
	AttemptID uint
	EventType model.ProctorEventType
	Count     int
}

func (r *proctorEventRepository) CountsByAttempt(attemptID uint) (map[model.ProctorEventType]int, error) {
	grouped, err := r.CountsForAttempts([]uint{attemptID})
	if err != nil {
		return nil, err
	}
	counts, ok := grouped[attemptID]
	if !ok {
		counts = map[model.ProctorEventType]int{}
	}
	return counts, nil
}

func (r *proctorEventRepository) CountsForAttempts(attemptIDs []uint) (map[uint]map[model.ProctorEventType]int, error) {
	result := make(map[uint]map[model.ProctorEventType]int, len(attemptIDs))
	if len(attemptIDs) == 0 {
		return result, nil
	}
	var rows []eventCountRow
	err := r.db.Model(&model.ProctorEvent{}).
		Select("attempt_id, event_type, COUNT(*) as count").
		Where("attempt_id IN ?", attemptIDs).
		Group("attempt_id, event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts, ok := result[row.AttemptID]
		if !ok {
			counts = map[model.ProctorEventType]int{}
			result[row.AttemptID] = counts
		}
		counts[row.EventType] = row.Count
	}
	return result, nil
}
