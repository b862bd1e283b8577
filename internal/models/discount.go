package models

import (
	"time"

	"github.com/gocql/gocql"
)

// DiscountType selects how Value applies to the order total.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "VALUE"
)

type Discount struct {
	ID           gocql.UUID   `json:"id"`
	Code         string       `json:"code"`
	Type         DiscountType `json:"type"`
	Value        int64        `json:"value"`
	IsActive     bool         `json:"isActive"`
	StartsAt     *time.Time   `json:"startsAt,omitempty"`
	EndsAt       *time.Time   `json:"endsAt,omitempty"`
	MaxUsage     int          `json:"maxUsage"`
	UsageCount   int          `json:"usageCount"`
	PerUserLimit int          `json:"perUserLimit"`
}

// Apply returns the discounted total, never below zero.
func (d *Discount) Apply(total int64) int64 {
	var cut int64
	if d.Type == DiscountPercentage {
		cut = total * d.Value / 100
	} else {
		cut = d.Value
	}
	if cut > total {
		cut = total
	}
	return total - cut
}

// DiscountUsage is one recorded redemption. The (discount, user, order)
// triple is unique so gateway webhook retries cannot double-count.
type DiscountUsage struct {
	ID         gocql.UUID `json:"id"`
	DiscountID gocql.UUID `json:"discountId"`
	UserID     gocql.UUID `json:"userId"`
	OrderID    gocql.UUID `json:"orderId"`
	UsedAt     time.Time  `json:"usedAt"`
}

// Reasons returned by discount validation.
const (
	DiscountNotFound         = "NOT_FOUND"
	DiscountInactive         = "INACTIVE"
	DiscountNotStarted       = "NOT_STARTED"
	DiscountExpired          = "EXPIRED"
	DiscountMaxUsageReached  = "MAX_USAGE_REACHED"
	DiscountUserLimitReached = "USER_LIMIT_REACHED"
)
