package model

import (
	"time"

	"gorm.io/gorm"
)

// Candidate carries the minimal identity the attempt core needs. Full user and
// role administration lives in the surrounding identity service; BatchID is
// the scheduling group assigned there, kept here so the control screen can
// filter attempts by batch.
type Candidate struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	FullName  string         `json:"full_name" gorm:"not null"`
	Email     string         `json:"email" gorm:"uniqueIndex"`
	BatchID   *uint          `json:"batch_id,omitempty" gorm:"index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
