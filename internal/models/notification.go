package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification types.
const (
	NotificationTeamInvitation = "team_invitation"
	NotificationInviteAccepted = "invite_accepted"
)

// Notification is an in-app message (e.g. "you have a pending team
// invitation" shown after signup). Payload carries type-specific fields.
type Notification struct {
	NotificationID uuid.UUID      `gorm:"column:notification_id;type:uuid;primaryKey" json:"notification_id"`
	UserID         uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Type           string         `gorm:"column:type;not null" json:"type"`
	ReferenceID    uuid.UUID      `gorm:"column:reference_id;type:uuid" json:"reference_id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Message        string         `gorm:"column:message;not null" json:"message"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	IsRead         bool           `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (Notification) TableName() string {
	return "Notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.NotificationID == uuid.Nil {
		n.NotificationID = uuid.New()
	}
	return nil
}
