package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleEntrepreneur = "entrepreneur"
	RoleAlly         = "ally"
	RoleAdmin        = "admin"
)

// User is the directory record the chat core consults for presentation
// (name, avatar) and for peer-pairing visibility. Account management lives
// in the enclosing platform.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Email    string    `gorm:"size:255;not null;unique" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Role     string    `gorm:"size:20;not null;default:'entrepreneur'" json:"role"`

	AvatarURL        *string `gorm:"size:255" json:"avatar_url"`
	DirectoryVisible bool    `gorm:"default:true" json:"directory_visible"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
