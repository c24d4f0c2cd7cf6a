package repository

import (
	"errors"

	"github.com/examguard/examguard/internal/model"
	"gorm.io/gorm"
)

// AttemptControlFilter narrows the admin control listing.
type AttemptControlFilter struct {
	ExamID   *uint
	BatchID  *uint // candidate scheduling batch
	Status   *model.AttemptStatus
	Search   string // matches candidate name or email
	Page     int
	PageSize int
}

type AttemptRepository interface {
	Create(tx *gorm.DB, attempt *model.Attempt) error
	FindByID(id uint) (*model.Attempt, error)
	FindByIDWithExam(id uint) (*model.Attempt, error)
	// UpdateWithVersion persists the attempt's mutable fields guarded by the
	// optimistic-concurrency column. It returns false (and no error) when the
	// expected version is stale and nothing was written.
	UpdateWithVersion(tx *gorm.DB, attempt *model.Attempt, expectedVersion int64) (bool, error)
	FindActiveByCandidateAndExam(tx *gorm.DB, candidateID, examID uint) (*model.Attempt, error)
	CountByCandidateAndExam(tx *gorm.DB, candidateID, examID uint) (int64, error)
	ListActiveWithExam() ([]model.Attempt, error)
	ListControl(filter AttemptControlFilter) ([]model.Attempt, int64, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *attemptRepository) Create(tx *gorm.DB, attempt *model.Attempt) error {
	return r.conn(tx).Create(attempt).Error
}

func (r *attemptRepository) FindByID(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDWithExam(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.Preload("Exam").Preload("Candidate").First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// attemptMutableColumns are the fields a lifecycle transition may touch. The
// explicit list keeps zero values (cleared PausedAt, reset counters) writable.
var attemptMutableColumns = []string{
	"status", "started_at", "extra_time_seconds", "resume_count",
	"last_activity_at", "paused_at", "paused_seconds_total", "ended_at",
	"termination_reason", "expiry_reason", "version", "updated_at",
}

func (r *attemptRepository) UpdateWithVersion(tx *gorm.DB, attempt *model.Attempt, expectedVersion int64) (bool, error) {
	attempt.Version = expectedVersion + 1
	res := r.conn(tx).Model(&model.Attempt{}).
		Where("id = ? AND version = ?", attempt.ID, expectedVersion).
		Select(attemptMutableColumns).
		Updates(attempt)
	if res.Error != nil {
		attempt.Version = expectedVersion
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		attempt.Version = expectedVersion
		return false, nil
	}
	return true, nil
}

func (r *attemptRepository) FindActiveByCandidateAndExam(tx *gorm.DB, candidateID, examID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.conn(tx).
		Where("candidate_id = ? AND exam_id = ? AND status IN ?", candidateID, examID, model.ActiveStatuses).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) CountByCandidateAndExam(tx *gorm.DB, candidateID, examID uint) (int64, error) {
	var count int64
	err := r.conn(tx).Model(&model.Attempt{}).
		Where("candidate_id = ? AND exam_id = ?", candidateID, examID).
		Count(&count).Error
	return count, err
}

func (r *attemptRepository) ListActiveWithExam() ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.Preload("Exam").Preload("Candidate").
		Where("status IN ?", model.ActiveStatuses).
		Order("started_at ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) ListControl(filter AttemptControlFilter) ([]model.Attempt, int64, error) {
	query := r.db.Model(&model.Attempt{}).
		Joins("JOIN candidates ON candidates.id = attempts.candidate_id")
	if filter.ExamID != nil {
		query = query.Where("attempts.exam_id = ?", *filter.ExamID)
	}
	if filter.BatchID != nil {
		query = query.Where("candidates.batch_id = ?", *filter.BatchID)
	}
	if filter.Status != nil {
		query = query.Where("attempts.status = ?", *filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("candidates.full_name ILIKE ? OR candidates.email ILIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var attempts []model.Attempt
	err := query.Preload("Exam").Preload("Candidate").
		Order("attempts.started_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&attempts).Error
	return attempts, total, err
}
