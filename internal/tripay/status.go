package tripay

import (
	"fmt"
	"strings"

	"kirana_back_end/internal/models"
)

// The gateway's status vocabulary is mapped through a closed table. An
// unrecognized status is a hard error at the boundary, never a silent
// fallthrough.
type statusClass int

const (
	classPaid statusClass = iota
	classPending
	classFailed
)

var statusTable = map[string]statusClass{
	"PAID":      classPaid,
	"SUCCESS":   classPaid,
	"COMPLETED": classPaid,
	"PENDING":   classPending,
	"UNPAID":    classPending,
	"EXPIRED":   classFailed,
	"FAILED":    classFailed,
	"CANCELLED": classFailed,
}

// MapStatus translates a gateway status into the local target status.
// isPaid reports whether the status is a successful-payment alias.
func MapStatus(raw string, completeOnPaid bool) (target models.OrderStatus, isPaid bool, err error) {
	class, ok := statusTable[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return "", false, fmt.Errorf("unrecognized gateway status %q", raw)
	}
	switch class {
	case classPaid:
		if completeOnPaid {
			return models.StatusCompleted, true, nil
		}
		return models.StatusProcessing, true, nil
	case classPending:
		return models.StatusPending, false, nil
	default:
		return models.StatusCancelled, false, nil
	}
}

// IsPaidStatus reports whether raw is a successful-payment alias.
func IsPaidStatus(raw string) bool {
	class, ok := statusTable[strings.ToUpper(strings.TrimSpace(raw))]
	return ok && class == classPaid
}

// ClearsCart reports whether raw is terminal for the checkout flow: the
// user's cart is dropped once the payment either succeeded or expired.
func ClearsCart(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PAID", "SUCCESS", "COMPLETED", "EXPIRED":
		return true
	}
	return false
}
