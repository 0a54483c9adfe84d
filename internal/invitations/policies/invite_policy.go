package policies

import (
	"bridgeai-backend/internal/models"
	"bridgeai-backend/internal/pkg/constants"
	"bridgeai-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ValidateInviteCreation enforces the issuance invariants: no self-invites,
// no invites to current active members, and at most one effectively-pending
// invitation per (team, email). Callers must have recorded any observed
// expiry first (Service.Issue does), so a status=pending row here really is
// pending.
func ValidateInviteCreation(db *gorm.DB, teamID uuid.UUID, email, actorEmail string) error {
	normalized := validation.NormalizeEmail(email)

	if normalized == validation.NormalizeEmail(actorEmail) {
		return ErrSelfInvite
	}

	var user models.User
	if err := db.Where("email = ?", normalized).First(&user).Error; err == nil {
		var member models.TeamMember
		err := db.Where("team_id = ? AND user_id = ? AND is_active = ?", teamID, user.UserID, true).
			First(&member).Error
		if err == nil {
			return ErrAlreadyTeamMember
		}
	}

	var invite models.Invitation
	if err := db.Where("team_id = ? AND email = ? AND status = ?", teamID, normalized, constants.InviteStatusPending).
		First(&invite).Error; err == nil {
		return ErrDuplicateInvite
	}

	return nil
}
