package policies

import "errors"

var (
	ErrSelfInvite        = errors.New("You cannot invite yourself")
	ErrAlreadyTeamMember = errors.New("User is already a member of this team")
	ErrDuplicateInvite   = errors.New("A pending invitation already exists for this email")
)
