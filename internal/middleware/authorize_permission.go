package middleware

import (
	"context"

	"bridgeai-backend/internal/pkg/constants"
	"bridgeai-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// TeamRoleSource resolves the caller's active role on a team. Implemented by
// the teams service; an interface here keeps middleware free of a DB import.
type TeamRoleSource interface {
	ActiveMemberRole(ctx context.Context, teamID, userID uuid.UUID) (string, error)
}

// AuthorizeTeamPermission checks the session user's role on the team named by
// the :team_id route param against PermissionRoles. Roles are per-team, so
// the check has to hit the membership store, not the session.
// Non-member or role not allowed -> 403; unconfigured permission -> 500.
func AuthorizeTeamPermission(roles TeamRoleSource, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		userID := getUserIDFromUser(user)
		if userID == uuid.Nil {
			return response.Error(c, "Authorization error", 500, nil)
		}
		teamID, err := uuid.Parse(c.Params("team_id"))
		if err != nil {
			return response.Error(c, "Invalid team id", 400, nil)
		}
		allowed, ok := constants.PermissionRoles[permission]
		if !ok || len(allowed) == 0 {
			return response.Error(c, "Permission configuration error", 500, nil)
		}
		role, err := roles.ActiveMemberRole(c.Context(), teamID, userID)
		if err != nil || role == "" {
			return response.Forbidden(c, "User is Forbidden from performing this action")
		}
		if !constants.AllowedRole(permission, role) {
			return response.Forbidden(c, "User is Forbidden from performing this action")
		}
		return c.Next()
	}
}

func getUserIDFromUser(user interface{}) uuid.UUID {
	m, ok := user.(map[string]interface{})
	if !ok {
		return uuid.Nil
	}
	s, _ := m["user_id"].(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
