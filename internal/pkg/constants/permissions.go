package constants

const (
	InviteMember    = "invite_member"
	CancelInvite    = "cancel_invite"
	ViewInvitations = "view_invitations"
	ViewTeam        = "view_team"
	ViewMembers     = "view_members"
)

// PermissionRoles maps each permission to the team roles allowed to perform it.
var PermissionRoles = map[string][]string{
	InviteMember:    {RoleOwner, RoleAdmin},
	CancelInvite:    {RoleOwner, RoleAdmin},
	ViewInvitations: {RoleOwner, RoleAdmin},
	ViewTeam:        {RoleOwner, RoleAdmin, RoleMember, RoleViewer},
	ViewMembers:     {RoleOwner, RoleAdmin, RoleMember, RoleViewer},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
