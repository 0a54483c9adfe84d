package constants

// Invitation statuses. Pending is the only non-terminal state; accepted,
// expired and canceled absorb all further events.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusExpired  = "expired"
	InviteStatusCanceled = "canceled"
)

// IsTerminalInviteStatus reports whether status permits no further transitions.
func IsTerminalInviteStatus(status string) bool {
	return status == InviteStatusAccepted || status == InviteStatusExpired || status == InviteStatusCanceled
}
