package syncengine

import (
	"time"

	"github.com/nextyou21/planner-backend/models"
)

// GateState drives which view a client is allowed to render.
type GateState string

const (
	GateUnauthenticated GateState = "unauthenticated"
	GateAuthenticating  GateState = "authenticating"
	GatePermissionError GateState = "permission_error"
	GateBlocked         GateState = "blocked"
	GateUnpaid          GateState = "unpaid"
	GatePendingApproval GateState = "pending_approval"
	GateApproved        GateState = "approved"
)

// resolveGate classifies an account from its document fields. Blocked wins
// over everything; an unpaid account is gated regardless of status; an
// approved account whose validUntil has passed falls back to pending
// approval.
func resolveGate(status string, isPaid bool, validUntil *time.Time, now time.Time) GateState {
	if status == models.StatusBlocked {
		return GateBlocked
	}
	if !isPaid {
		return GateUnpaid
	}
	switch status {
	case models.StatusApproved:
		if validUntil != nil && validUntil.Before(now) {
			return GatePendingApproval
		}
		return GateApproved
	default:
		return GatePendingApproval
	}
}
