package invitations

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"bridgeai-backend/internal/models"
	"bridgeai-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupHandlersTest(t *testing.T) (*Handlers, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Team{}, &models.TeamMember{}, &models.Invitation{}))
	svc := &Service{DB: db, FrontendURL: "https://app.bridgeai.dev"}
	return &Handlers{Service: svc}, db
}

func asUser(u *models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": u.UserID.String(), "email": u.Email, "fullname": u.Fullname,
		})
		return c.Next()
	}
}

func TestCheckToken_MissingToken(t *testing.T) {
	h, _ := setupHandlersTest(t)
	app := fiber.New()
	app.Post("/check-token", h.CheckToken)

	body, _ := json.Marshal(map[string]string{})
	req := httptest.NewRequest("POST", "/check-token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCheckToken_UnknownToken(t *testing.T) {
	h, _ := setupHandlersTest(t)
	app := fiber.New()
	app.Post("/check-token", h.CheckToken)

	body, _ := json.Marshal(map[string]string{"token": "nonexistent-token"})
	req := httptest.NewRequest("POST", "/check-token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestCheckToken_ValidToken(t *testing.T) {
	h, db := setupHandlersTest(t)

	teamID := uuid.New()
	require.NoError(t, db.Create(&models.Team{TeamID: teamID, Name: "Core", CreatedBy: uuid.New()}).Error)
	require.NoError(t, db.Create(&models.Invitation{
		TeamID: teamID, Email: "inv@test.com", Role: constants.RoleViewer,
		InviteToken: "valid-token-abc", Status: constants.InviteStatusPending,
		InvitedBy: uuid.New(), ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}).Error)

	app := fiber.New()
	app.Post("/check-token", h.CheckToken)

	body, _ := json.Marshal(map[string]string{"token": "valid-token-abc"})
	req := httptest.NewRequest("POST", "/check-token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var out struct {
		Data PublicView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "inv@test.com", out.Data.Email)
	assert.Equal(t, "Core", out.Data.TeamName)
}

func TestCheckToken_ExpiredTokenStillVisible(t *testing.T) {
	h, db := setupHandlersTest(t)

	teamID := uuid.New()
	require.NoError(t, db.Create(&models.Invitation{
		TeamID: teamID, Email: "late@test.com", Role: constants.RoleViewer,
		InviteToken: "stale-token", Status: constants.InviteStatusPending,
		InvitedBy: uuid.New(), ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)

	app := fiber.New()
	app.Post("/check-token", h.CheckToken)

	body, _ := json.Marshal(map[string]string{"token": "stale-token"})
	req := httptest.NewRequest("POST", "/check-token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var out struct {
		Data PublicView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, constants.InviteStatusExpired, out.Data.Status)
}

func TestSendInvite_MissingFields(t *testing.T) {
	h, db := setupHandlersTest(t)
	actor := &models.User{Fullname: "Admin", Email: "admin@test.com", PasswordHash: "x"}
	require.NoError(t, db.Create(actor).Error)

	app := fiber.New()
	app.Use(asUser(actor))
	app.Post("/teams/:team_id/invitations", h.SendInvite)

	body, _ := json.Marshal(map[string]string{"email": "test@test.com"})
	req := httptest.NewRequest("POST", "/teams/"+uuid.New().String()+"/invitations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestSendInvite_Success(t *testing.T) {
	h, db := setupHandlersTest(t)
	actor := &models.User{Fullname: "Admin", Email: "admin@test.com", PasswordHash: "x"}
	require.NoError(t, db.Create(actor).Error)
	team := &models.Team{Name: "Core", CreatedBy: actor.UserID}
	require.NoError(t, db.Create(team).Error)

	app := fiber.New()
	app.Use(asUser(actor))
	app.Post("/teams/:team_id/invitations", h.SendInvite)

	body, _ := json.Marshal(map[string]string{"email": "new@test.com", "role": constants.RoleMember})
	req := httptest.NewRequest("POST", "/teams/"+team.TeamID.String()+"/invitations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var out struct {
		Data IssueResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out.Data.InviteLink, "/invite/accept?token=")
}

func TestSendInvite_DuplicateConflict(t *testing.T) {
	h, db := setupHandlersTest(t)
	actor := &models.User{Fullname: "Admin", Email: "admin@test.com", PasswordHash: "x"}
	require.NoError(t, db.Create(actor).Error)
	team := &models.Team{Name: "Core", CreatedBy: actor.UserID}
	require.NoError(t, db.Create(team).Error)

	app := fiber.New()
	app.Use(asUser(actor))
	app.Post("/teams/:team_id/invitations", h.SendInvite)

	body, _ := json.Marshal(map[string]string{"email": "new@test.com", "role": constants.RoleMember})
	req := httptest.NewRequest("POST", "/teams/"+team.TeamID.String()+"/invitations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	body, _ = json.Marshal(map[string]string{"email": "NEW@test.com", "role": constants.RoleMember})
	req = httptest.NewRequest("POST", "/teams/"+team.TeamID.String()+"/invitations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)
}

func TestAcceptInvite_Success(t *testing.T) {
	h, db := setupHandlersTest(t)
	actor := &models.User{Fullname: "Admin", Email: "admin@test.com", PasswordHash: "x"}
	require.NoError(t, db.Create(actor).Error)
	team := &models.Team{Name: "Core", CreatedBy: actor.UserID}
	require.NoError(t, db.Create(team).Error)
	invitee := &models.User{Fullname: "New", Email: "new@test.com", PasswordHash: "x"}
	require.NoError(t, db.Create(invitee).Error)

	require.NoError(t, db.Create(&models.Invitation{
		TeamID: team.TeamID, Email: invitee.Email, Role: constants.RoleMember,
		InviteToken: "join-core", Status: constants.InviteStatusPending,
		InvitedBy: actor.UserID, ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}).Error)

	app := fiber.New()
	app.Use(asUser(invitee))
	app.Post("/accept-invite", h.AcceptInvite)

	body, _ := json.Marshal(map[string]string{"token": "join-core"})
	req := httptest.NewRequest("POST", "/accept-invite", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var member models.TeamMember
	require.NoError(t, db.Where("team_id = ? AND user_id = ?", team.TeamID, invitee.UserID).First(&member).Error)
	assert.True(t, member.IsActive)
}

func TestAcceptInvite_WrongAccountForbidden(t *testing.T) {
	h, db := setupHandlersTest(t)
	other := &models.User{Fullname: "Other", Email: "other@test.com", PasswordHash: "x"}
	require.NoError(t, db.Create(other).Error)

	require.NoError(t, db.Create(&models.Invitation{
		TeamID: uuid.New(), Email: "intended@test.com", Role: constants.RoleMember,
		InviteToken: "not-yours", Status: constants.InviteStatusPending,
		InvitedBy: uuid.New(), ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}).Error)

	app := fiber.New()
	app.Use(asUser(other))
	app.Post("/accept-invite", h.AcceptInvite)

	body, _ := json.Marshal(map[string]string{"token": "not-yours"})
	req := httptest.NewRequest("POST", "/accept-invite", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestAcceptInvite_ExpiredGone(t *testing.T) {
	h, db := setupHandlersTest(t)
	invitee := &models.User{Fullname: "Late", Email: "late@test.com", PasswordHash: "x"}
	require.NoError(t, db.Create(invitee).Error)

	require.NoError(t, db.Create(&models.Invitation{
		TeamID: uuid.New(), Email: invitee.Email, Role: constants.RoleMember,
		InviteToken: "too-late", Status: constants.InviteStatusPending,
		InvitedBy: uuid.New(), ExpiresAt: time.Now().Add(-time.Minute),
	}).Error)

	app := fiber.New()
	app.Use(asUser(invitee))
	app.Post("/accept-invite", h.AcceptInvite)

	body, _ := json.Marshal(map[string]string{"token": "too-late"})
	req := httptest.NewRequest("POST", "/accept-invite", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 410, resp.StatusCode)
}

func TestCancelInvite_Success(t *testing.T) {
	h, db := setupHandlersTest(t)
	actor := &models.User{Fullname: "Admin", Email: "admin@test.com", PasswordHash: "x"}
	require.NoError(t, db.Create(actor).Error)
	team := &models.Team{Name: "Core", CreatedBy: actor.UserID}
	require.NoError(t, db.Create(team).Error)

	inv := &models.Invitation{
		TeamID: team.TeamID, Email: "new@test.com", Role: constants.RoleMember,
		InviteToken: "to-cancel", Status: constants.InviteStatusPending,
		InvitedBy: actor.UserID, ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	require.NoError(t, db.Create(inv).Error)

	app := fiber.New()
	app.Use(asUser(actor))
	app.Delete("/teams/:team_id/invitations/:invite_id", h.CancelInvite)

	req := httptest.NewRequest("DELETE", "/teams/"+team.TeamID.String()+"/invitations/"+inv.InviteID.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var stored models.Invitation
	require.NoError(t, db.Where("invite_id = ?", inv.InviteID).First(&stored).Error)
	assert.Equal(t, constants.InviteStatusCanceled, stored.Status)
}

func TestResendInvite_TooSoon(t *testing.T) {
	h, db := setupHandlersTest(t)
	actor := &models.User{Fullname: "Admin", Email: "admin@test.com", PasswordHash: "x"}
	require.NoError(t, db.Create(actor).Error)
	team := &models.Team{Name: "Core", CreatedBy: actor.UserID}
	require.NoError(t, db.Create(team).Error)

	require.NoError(t, db.Create(&models.Invitation{
		TeamID: team.TeamID, Email: "new@test.com", Role: constants.RoleMember,
		InviteToken: "fresh", Status: constants.InviteStatusPending,
		InvitedBy: actor.UserID, ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}).Error)

	app := fiber.New()
	app.Use(asUser(actor))
	app.Post("/teams/:team_id/invitations/resend", h.ResendInvite)

	body, _ := json.Marshal(map[string]string{"email": "new@test.com"})
	req := httptest.NewRequest("POST", "/teams/"+team.TeamID.String()+"/invitations/resend", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
}

func TestListTeamInvitations_TokenVisibleToAdmins(t *testing.T) {
	h, db := setupHandlersTest(t)
	actor := &models.User{Fullname: "Admin", Email: "admin@test.com", PasswordHash: "x"}
	require.NoError(t, db.Create(actor).Error)
	team := &models.Team{Name: "Core", CreatedBy: actor.UserID}
	require.NoError(t, db.Create(team).Error)

	require.NoError(t, db.Create(&models.Invitation{
		TeamID: team.TeamID, Email: "new@test.com", Role: constants.RoleMember,
		InviteToken: "listed-token", Status: constants.InviteStatusPending,
		InvitedBy: actor.UserID, ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}).Error)

	app := fiber.New()
	app.Use(asUser(actor))
	app.Get("/teams/:team_id/invitations", h.ListTeamInvitations)

	req := httptest.NewRequest("GET", "/teams/"+team.TeamID.String()+"/invitations", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var out struct {
		Data []models.Invitation `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "listed-token", out.Data[0].InviteToken)
}
