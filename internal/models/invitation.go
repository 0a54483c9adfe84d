package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invitation is one outstanding or resolved offer to join a team.
// Rows are never deleted: accepted/expired/canceled records stay for audit.
// The stored status can lag behind wall-clock expiry; readers must go
// through invitations.EffectiveStatus rather than reading Status directly.
type Invitation struct {
	InviteID    uuid.UUID      `gorm:"column:invite_id;type:uuid;primaryKey" json:"invite_id"`
	TeamID      uuid.UUID      `gorm:"column:team_id;type:uuid;not null;index" json:"team_id"`
	Email       string         `gorm:"column:email;not null" json:"email"`
	Role        string         `gorm:"column:role;not null" json:"role"`
	InviteToken string         `gorm:"column:invite_token;not null;uniqueIndex" json:"invite_token"`
	Status      string         `gorm:"column:status;not null;default:'pending'" json:"status"`
	InvitedBy   uuid.UUID      `gorm:"column:invited_by;type:uuid;not null" json:"invited_by"`
	ExpiresAt   time.Time      `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Invitation) TableName() string {
	return "Invitations"
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.InviteID == uuid.Nil {
		i.InviteID = uuid.New()
	}
	return nil
}
