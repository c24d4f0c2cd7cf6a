package repository

import (
	"errors"

	"github.com/examguard/examguard/internal/model"
	"gorm.io/gorm"
)

type OverrideGrantRepository interface {
	Create(tx *gorm.DB, grant *model.OverrideGrant) error
	// FindByIdempotencyKey returns nil, nil when no grant carries the key.
	FindByIdempotencyKey(key string) (*model.OverrideGrant, error)
	FindUnconsumedAllowNew(tx *gorm.DB, candidateID, examID uint) (*model.OverrideGrant, error)
	// MarkConsumed flips the one-shot flag. It returns false when another
	// caller consumed the grant first, so a grant never authorizes two starts.
	MarkConsumed(tx *gorm.DB, grantID uint) (bool, error)
	ListByAttempt(attemptID uint) ([]model.OverrideGrant, error)
}

type overrideGrantRepository struct {
	db *gorm.DB
}

func NewOverrideGrantRepository(db *gorm.DB) OverrideGrantRepository {
	return &overrideGrantRepository{db: db}
}

func (r *overrideGrantRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *overrideGrantRepository) Create(tx *gorm.DB, grant *model.OverrideGrant) error {
	return r.conn(tx).Create(grant).Error
}

func (r *overrideGrantRepository) FindByIdempotencyKey(key string) (*model.OverrideGrant, error) {
	var grant model.OverrideGrant
	err := r.db.Where("idempotency_key = ?", key).First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *overrideGrantRepository) FindUnconsumedAllowNew(tx *gorm.DB, candidateID, examID uint) (*model.OverrideGrant, error) {
	var grant model.OverrideGrant
	err := r.conn(tx).
		Where("candidate_id = ? AND exam_id = ? AND type = ? AND consumed = false",
			candidateID, examID, model.OverrideAllowNewAttempt).
		Order("granted_at ASC").
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *overrideGrantRepository) MarkConsumed(tx *gorm.DB, grantID uint) (bool, error) {
	res := r.conn(tx).Model(&model.OverrideGrant{}).
		Where("id = ? AND consumed = false", grantID).
		Update("consumed", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *overrideGrantRepository) ListByAttempt(attemptID uint) ([]model.OverrideGrant, error) {
	var grants []model.OverrideGrant
	err := r.db.Where("attempt_id = ?", attemptID).Order("granted_at ASC").Find(&grants).Error
	return grants, err
}
