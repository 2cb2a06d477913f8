package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AssignmentActive = "active"
	AssignmentEnded  = "ended"
)

// Assignment links an entrepreneur to an ally. It is the rule data behind
// messaging eligibility: an entrepreneur may chat with any ally that has
// ever been assigned to them, active or ended.
type Assignment struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	EntrepreneurID uuid.UUID `gorm:"not null;index" json:"entrepreneur_id"`
	AllyID         uuid.UUID `gorm:"not null;index" json:"ally_id"`
	Status         string    `gorm:"size:20;not null;default:'active'" json:"status"`

	Entrepreneur User `gorm:"foreignkey:EntrepreneurID" json:"-"`
	Ally         User `gorm:"foreignkey:AllyID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
