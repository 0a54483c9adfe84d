package invitations

import (
	"time"

	"bridgeai-backend/internal/models"
	"bridgeai-backend/internal/pkg/constants"
)

// EffectiveStatus is the single derivation of an invitation's status against
// the clock. A stored "pending" whose expiry has passed is expired for every
// purpose; all read paths (view, accept, duplicate check, listing) must go
// through here instead of reading the stored field.
func EffectiveStatus(inv *models.Invitation, now time.Time) string {
	if inv.Status == constants.InviteStatusPending && !now.Before(inv.ExpiresAt) {
		return constants.InviteStatusExpired
	}
	return inv.Status
}
