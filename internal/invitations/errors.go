package invitations

import "errors"

// Sentinel errors for the invitation lifecycle. Everything except
// ErrStoreUnavailable is definitional: callers must not retry blindly.
// Issuance policy errors (self-invite, duplicate, already-member) live in
// the policies package.
var (
	ErrInvitationNotFound = errors.New("Invalid invitation token")
	ErrInviteExpired      = errors.New("Invitation has expired")
	ErrInviteAlreadyUsed  = errors.New("Invitation has already been used")
	ErrInviteCanceled     = errors.New("Invitation has been canceled")
	ErrEmailMismatch      = errors.New("Invitation email does not match logged-in user")
	ErrInvalidRole        = errors.New("Invalid role")
	ErrInvalidEmail       = errors.New("Invalid email address")
	ErrUserNotFound       = errors.New("User not found")
	ErrResendTooSoon      = errors.New("Invite can only be resent once per day")
	ErrTokenGeneration    = errors.New("Could not generate a unique invitation token")

	// ErrStoreUnavailable wraps transient store failures; safe to retry.
	ErrStoreUnavailable = errors.New("Service temporarily unavailable")
)
