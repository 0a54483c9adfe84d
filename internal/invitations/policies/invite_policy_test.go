package policies

import (
	"testing"
	"time"

	"bridgeai-backend/internal/models"
	"bridgeai-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPolicyTest(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.TeamMember{}, &models.Invitation{}))
	return db
}

func TestValidateInviteCreation_SelfInvite(t *testing.T) {
	db := setupPolicyTest(t)
	err := ValidateInviteCreation(db, uuid.New(), "Me@Example.com", "me@example.com")
	assert.ErrorIs(t, err, ErrSelfInvite)
}

func TestValidateInviteCreation_ActiveMember(t *testing.T) {
	db := setupPolicyTest(t)
	teamID := uuid.New()
	member := &models.User{Fullname: "Carol", Email: "carol@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(member).Error)
	require.NoError(t, db.Create(&models.TeamMember{
		TeamID: teamID, UserID: member.UserID,
		Role: constants.RoleMember, IsActive: true, JoinedAt: time.Now(),
	}).Error)

	err := ValidateInviteCreation(db, teamID, "carol@example.com", "admin@example.com")
	assert.ErrorIs(t, err, ErrAlreadyTeamMember)
}

func TestValidateInviteCreation_InactiveMemberAllowed(t *testing.T) {
	db := setupPolicyTest(t)
	teamID := uuid.New()
	former := &models.User{Fullname: "Dave", Email: "dave@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(former).Error)
	// GORM replaces a zero-value is_active with the column default (true)
	// on insert, so deactivate with an update.
	left := &models.TeamMember{
		TeamID: teamID, UserID: former.UserID,
		Role: constants.RoleMember, IsActive: false, JoinedAt: time.Now(),
	}
	require.NoError(t, db.Create(left).Error)
	require.NoError(t, db.Model(left).Update("is_active", false).Error)

	err := ValidateInviteCreation(db, teamID, "dave@example.com", "admin@example.com")
	assert.NoError(t, err)
}

func TestValidateInviteCreation_DuplicatePending(t *testing.T) {
	db := setupPolicyTest(t)
	teamID := uuid.New()
	require.NoError(t, db.Create(&models.Invitation{
		TeamID: teamID, Email: "new@example.com", Role: constants.RoleMember,
		InviteToken: "t1", Status: constants.InviteStatusPending,
		InvitedBy: uuid.New(), ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	err := ValidateInviteCreation(db, teamID, "new@example.com", "admin@example.com")
	assert.ErrorIs(t, err, ErrDuplicateInvite)
}

func TestValidateInviteCreation_ResolvedInviteDoesNotBlock(t *testing.T) {
	db := setupPolicyTest(t)
	teamID := uuid.New()
	for i, status := range []string{constants.InviteStatusAccepted, constants.InviteStatusCanceled, constants.InviteStatusExpired} {
		require.NoError(t, db.Create(&models.Invitation{
			TeamID: teamID, Email: "new@example.com", Role: constants.RoleMember,
			InviteToken: string(rune('a' + i)), Status: status,
			InvitedBy: uuid.New(), ExpiresAt: time.Now().Add(time.Hour),
		}).Error)
	}

	err := ValidateInviteCreation(db, teamID, "new@example.com", "admin@example.com")
	assert.NoError(t, err)
}

func TestValidateInviteCreation_ScopedToTeam(t *testing.T) {
	db := setupPolicyTest(t)
	otherTeam := uuid.New()
	require.NoError(t, db.Create(&models.Invitation{
		TeamID: otherTeam, Email: "new@example.com", Role: constants.RoleMember,
		InviteToken: "elsewhere", Status: constants.InviteStatusPending,
		InvitedBy: uuid.New(), ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	// Same email, different team: no conflict.
	err := ValidateInviteCreation(db, uuid.New(), "new@example.com", "admin@example.com")
	assert.NoError(t, err)
}
