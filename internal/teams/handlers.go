package teams

import (
	"bridgeai-backend/internal/middleware"
	"bridgeai-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/teams
func (h *Handlers) CreateTeam(c *fiber.Ctx) error {
	var body CreateTeamInput
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return response.Error(c, "Team name is required", 400, nil)
	}

	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	team, err := h.Service.CreateTeam(c.Context(), body, actor.UserID)
	if err != nil {
		if err == ErrNameRequired {
			return response.Error(c, err.Error(), 400, nil)
		}
		return response.Error(c, err.Error(), 500, nil)
	}
	return response.SuccessCreated(c, "Team created successfully", team, nil)
}

// GET /api/v1/teams/:team_id
func (h *Handlers) GetTeam(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	teamID, err := uuid.Parse(c.Params("team_id"))
	if err != nil {
		return response.Error(c, "Invalid team id", 400, nil)
	}

	team, err := h.Service.GetTeam(c.Context(), teamID, actor.UserID)
	if err != nil {
		switch err {
		case ErrTeamNotFound:
			return response.NotFound(c, err.Error())
		case ErrNotTeamMember:
			return response.Forbidden(c, err.Error())
		default:
			return response.Error(c, err.Error(), 500, nil)
		}
	}
	return response.Success(c, "Team fetched successfully", team, nil)
}

// GET /api/v1/teams/:team_id/members?include_inactive=
func (h *Handlers) ListMembers(c *fiber.Ctx) error {
	actor := getActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	teamID, err := uuid.Parse(c.Params("team_id"))
	if err != nil {
		return response.Error(c, "Invalid team id", 400, nil)
	}
	includeInactive := c.QueryBool("include_inactive", false)

	members, err := h.Service.ListMembers(c.Context(), teamID, actor.UserID, includeInactive)
	if err != nil {
		if err == ErrNotTeamMember {
			return response.Forbidden(c, err.Error())
		}
		return response.Error(c, err.Error(), 500, nil)
	}
	return response.Success(c, "Members fetched successfully", members, nil)
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
