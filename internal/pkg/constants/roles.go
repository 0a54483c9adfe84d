package constants

// Team roles, closed set. Stored on TeamMember.role and Invitation.role;
// anything else is rejected at the boundary.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// ValidRoles is the set of allowed role values (must match the DB enum).
var ValidRoles = []string{RoleOwner, RoleAdmin, RoleMember, RoleViewer}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
