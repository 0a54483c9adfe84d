package teams

import (
	"context"
	"strings"
	"time"

	"bridgeai-backend/internal/models"
	"bridgeai-backend/internal/pkg/constants"
	"bridgeai-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service encapsulates team and membership operations. The invitation engine
// treats this as its membership store: the only write it performs through it
// is the upsert inside Accept.
type Service struct {
	DB *gorm.DB
}

type CreateTeamInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateTeam creates a team and makes the creator its active owner, in one
// transaction so a team can never exist without an owner.
func (s *Service) CreateTeam(ctx context.Context, in CreateTeamInput, creatorID uuid.UUID) (*models.Team, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	team := &models.Team{
		TeamID:      uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   creatorID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		owner := &models.TeamMember{
			TeamID:   team.TeamID,
			UserID:   creatorID,
			Role:     constants.RoleOwner,
			IsActive: true,
			JoinedAt: time.Now(),
		}
		return tx.Create(owner).Error
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// GetTeam returns the team if the caller is an active member.
func (s *Service) GetTeam(ctx context.Context, teamID, callerID uuid.UUID) (*models.Team, error) {
	if _, err := s.ActiveMember(ctx, teamID, callerID); err != nil {
		return nil, err
	}
	var team models.Team
	if err := s.DB.WithContext(ctx).Where("team_id = ?", teamID).First(&team).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

// MemberView is a member row joined with the user's name and email.
type MemberView struct {
	MemberID uuid.UUID `json:"member_id"`
	UserID   uuid.UUID `json:"user_id"`
	Fullname string    `json:"fullname"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
	JoinedAt time.Time `json:"joined_at"`
}

// ListMembers lists team members with user details. Inactive rows are
// filtered out unless includeInactive is set.
func (s *Service) ListMembers(ctx context.Context, teamID, callerID uuid.UUID, includeInactive bool) ([]MemberView, error) {
	if _, err := s.ActiveMember(ctx, teamID, callerID); err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx).
		Table("TeamMembers").
		Select(`"TeamMembers".member_id, "TeamMembers".user_id, "Users".fullname, "Users".email, "TeamMembers".role, "TeamMembers".is_active, "TeamMembers".joined_at`).
		Joins(`JOIN "Users" ON "Users".user_id = "TeamMembers".user_id`).
		Where(`"TeamMembers".team_id = ? AND "TeamMembers".deleted_at IS NULL`, teamID).
		Order(`"TeamMembers".joined_at ASC`)
	if !includeInactive {
		q = q.Where(`"TeamMembers".is_active = ?`, true)
	}
	var members []MemberView
	if err := q.Scan(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ActiveMember returns the caller's active membership row, or ErrNotTeamMember.
func (s *Service) ActiveMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	var m models.TeamMember
	err := s.DB.WithContext(ctx).
		Where("team_id = ? AND user_id = ? AND is_active = ?", teamID, userID, true).
		First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotTeamMember
		}
		return nil, err
	}
	return &m, nil
}

// ActiveMemberRole implements middleware.TeamRoleSource.
func (s *Service) ActiveMemberRole(ctx context.Context, teamID, userID uuid.UUID) (string, error) {
	m, err := s.ActiveMember(ctx, teamID, userID)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// ActiveMemberByEmail checks whether the address already belongs to an active
// member of the team. Used by issuance to reject inviting existing members;
// an email with no account at all is simply not a member yet.
func (s *Service) ActiveMemberByEmail(ctx context.Context, teamID uuid.UUID, email string) (*models.TeamMember, error) {
	normalized := validation.NormalizeEmail(email)
	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", normalized).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotTeamMember
		}
		return nil, err
	}
	return s.ActiveMember(ctx, teamID, user.UserID)
}

// RequireTeamRole returns nil when the caller holds one of the roles as an
// active member, ErrForbidden otherwise.
func (s *Service) RequireTeamRole(ctx context.Context, teamID, userID uuid.UUID, roles ...string) error {
	m, err := s.ActiveMember(ctx, teamID, userID)
	if err != nil {
		if err == ErrNotTeamMember {
			return ErrForbidden
		}
		return err
	}
	for _, r := range roles {
		if m.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
