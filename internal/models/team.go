package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team is the resource memberships and invitations attach to.
type Team struct {
	TeamID      uuid.UUID      `gorm:"column:team_id;type:uuid;primaryKey" json:"team_id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Description string         `gorm:"column:description" json:"description"`
	CreatedBy   uuid.UUID      `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Team) TableName() string {
	return "Teams"
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.TeamID == uuid.Nil {
		t.TeamID = uuid.New()
	}
	return nil
}

// TeamMember records that a user belongs to a team with a given role.
// One row per (team, user); leaving a team flips is_active instead of
// deleting, so a later re-invite reactivates the same row.
type TeamMember struct {
	MemberID  uuid.UUID      `gorm:"column:member_id;type:uuid;primaryKey" json:"member_id"`
	TeamID    uuid.UUID      `gorm:"column:team_id;type:uuid;not null;uniqueIndex:idx_team_user" json:"team_id"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_team_user" json:"user_id"`
	Role      string         `gorm:"column:role;not null;default:member" json:"role"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	JoinedAt  time.Time      `gorm:"column:joined_at" json:"joined_at"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (TeamMember) TableName() string {
	return "TeamMembers"
}

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if m.MemberID == uuid.Nil {
		m.MemberID = uuid.New()
	}
	return nil
}
