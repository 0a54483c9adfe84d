package teams

import "errors"

var (
	ErrTeamNotFound   = errors.New("Team not found")
	ErrNotTeamMember  = errors.New("You are not a member of this team")
	ErrForbidden      = errors.New("User is Forbidden from performing this action")
	ErrNameRequired   = errors.New("Team name is required")
	ErrMemberNotFound = errors.New("Team member not found")
)
