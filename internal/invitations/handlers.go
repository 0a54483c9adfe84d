package invitations

import (
	"errors"

	"bridgeai-backend/internal/invitations/policies"
	"bridgeai-backend/internal/middleware"
	"bridgeai-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/teams/:team_id/invitations (INVITE_MEMBER permission via middleware)
func (h *Handlers) SendInvite(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" || body.Role == "" {
		return response.Error(c, "Email and role are required", 400, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	teamID, err := uuid.Parse(c.Params("team_id"))
	if err != nil {
		return response.Error(c, "Invalid team id", 400, nil)
	}

	result, err := h.Service.Issue(c.Context(), IssueInput{
		TeamID:      teamID,
		Email:       body.Email,
		Role:        body.Role,
		ActorUserID: actor.UserID,
		ActorEmail:  actor.Email,
	})
	if err != nil {
		return inviteError(c, err)
	}
	return response.SuccessCreated(c, "Invitation sent successfully", result, nil)
}

// GET /api/v1/teams/:team_id/invitations?include_expired= (VIEW_INVITATIONS permission via middleware)
func (h *Handlers) ListTeamInvitations(c *fiber.Ctx) error {
	teamID, err := uuid.Parse(c.Params("team_id"))
	if err != nil {
		return response.Error(c, "Invalid team id", 400, nil)
	}
	includeExpired := c.QueryBool("include_expired", false)

	invitations, err := h.Service.ListForTeam(c.Context(), teamID, includeExpired)
	if err != nil {
		return inviteError(c, err)
	}
	return response.Success(c, "Invitations fetched successfully", invitations, nil)
}

// DELETE /api/v1/teams/:team_id/invitations/:invite_id (CANCEL_INVITE permission via middleware)
func (h *Handlers) CancelInvite(c *fiber.Ctx) error {
	teamID, err := uuid.Parse(c.Params("team_id"))
	if err != nil {
		return response.Error(c, "Invalid team id", 400, nil)
	}
	inviteID, err := uuid.Parse(c.Params("invite_id"))
	if err != nil {
		return response.Error(c, "Invalid invitation id", 400, nil)
	}

	inv, err := h.Service.Cancel(c.Context(), teamID, inviteID)
	if err != nil {
		return inviteError(c, err)
	}
	return response.Success(c, "Invitation canceled", inv, nil)
}

// POST /api/v1/teams/:team_id/invitations/resend (INVITE_MEMBER permission via middleware)
func (h *Handlers) ResendInvite(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" {
		return response.Error(c, "Email is required", 400, nil)
	}
	teamID, err := uuid.Parse(c.Params("team_id"))
	if err != nil {
		return response.Error(c, "Invalid team id", 400, nil)
	}

	result, err := h.Service.Resend(c.Context(), ResendInput{TeamID: teamID, Email: body.Email})
	if err != nil {
		return inviteError(c, err)
	}
	return response.Success(c, "Invitation resent successfully", result, nil)
}

// POST /api/v1/invitations/public/check-token (no auth)
func (h *Handlers) CheckToken(c *fiber.Ctx) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&body); err != nil || body.Token == "" {
		return response.Error(c, "token is required", 400, nil)
	}

	view, err := h.Service.View(c.Context(), body.Token)
	if err != nil {
		return inviteError(c, err)
	}
	return response.Success(c, "Invitation token verified", view, nil)
}

// POST /api/v1/invitations/accept-invite (auth only, no team permission:
// the token itself is the authorization)
func (h *Handlers) AcceptInvite(c *fiber.Ctx) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&body); err != nil || body.Token == "" {
		return response.Error(c, "Invitation token required", 400, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Service.Accept(c.Context(), AcceptInput{
		Token:  body.Token,
		UserID: actor.UserID,
	})
	if err != nil {
		return inviteError(c, err)
	}
	return response.Success(c, "Invitation accepted successfully", result, nil)
}

// inviteError maps lifecycle errors onto status codes: gone invitations are
// 410 so clients can distinguish "too late" from 404 "never existed", and
// resolution conflicts are 409.
func inviteError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInvitationNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, ErrInviteExpired):
		return response.Error(c, err.Error(), fiber.StatusGone, nil)
	case errors.Is(err, ErrInviteAlreadyUsed),
		errors.Is(err, ErrInviteCanceled),
		errors.Is(err, policies.ErrDuplicateInvite),
		errors.Is(err, policies.ErrAlreadyTeamMember):
		return response.Conflict(c, err.Error())
	case errors.Is(err, ErrEmailMismatch):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, policies.ErrSelfInvite),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrInvalidEmail):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, ErrResendTooSoon):
		return response.Error(c, err.Error(), fiber.StatusTooManyRequests, nil)
	case errors.Is(err, ErrUserNotFound):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, ErrStoreUnavailable):
		return response.Error(c, ErrStoreUnavailable.Error(), fiber.StatusServiceUnavailable, nil)
	default:
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
}

type actorInfo struct {
	UserID   uuid.UUID
	Fullname string
	Email    string
}

func getActor(c *fiber.Ctx) *actorInfo {
	u := middleware.GetUser(c)
	if u == nil {
		return nil
	}
	m, ok := u.(map[string]interface{})
	if !ok {
		return nil
	}
	idStr, _ := m["user_id"].(string)
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return nil
	}
	email, _ := m["email"].(string)
	fullname, _ := m["fullname"].(string)
	return &actorInfo{UserID: userID, Fullname: fullname, Email: email}
}
