package orders

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// transitions lists the statuses each status may move to. Statuses absent
// from the map are terminal.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusShipped, enums.OrderStatusCancelled, enums.OrderStatusReturned},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered, enums.OrderStatusReturned},
	enums.OrderStatusDelivered: {enums.OrderStatusReturned},
}

// AllowedTransitions returns the statuses reachable from from in one step.
func AllowedTransitions(from enums.OrderStatus) []enums.OrderStatus {
	next := transitions[from]
	out := make([]enums.OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is a legal edge. Writing the
// current status again is always allowed.
func CanTransition(from, to enums.OrderStatus) bool {
	if from == to {
		return true
	}
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func IsTerminal(status enums.OrderStatus) bool {
	return len(transitions[status]) == 0
}

// ValidateTransition returns a STATE_CONFLICT error for illegal edges.
func ValidateTransition(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", to)
	}
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order cannot move from %s to %s", from, to).
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": AllowedTransitions(from),
		})
}
