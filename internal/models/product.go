package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

// Availability is the fulfillment class of a product: ready stock or an
// N-day preorder (custom bouquets, imported flowers).
type Availability string

const (
	AvailabilityReady  Availability = "READY"
	AvailabilityPO2Day Availability = "PO_2_DAY"
	AvailabilityPO5Day Availability = "PO_5_DAY"
)

// LeadDays returns the preorder lead time in calendar days. The PO_<n>_DAY
// form is parsed generically so new lead times need no code change. Unknown
// values fall back to ready stock.
func (a Availability) LeadDays() int {
	s := strings.ToUpper(strings.TrimSpace(string(a)))
	if s == "" || s == string(AvailabilityReady) {
		return 0
	}
	if strings.HasPrefix(s, "PO_") && strings.HasSuffix(s, "_DAY") {
		mid := strings.TrimSuffix(strings.TrimPrefix(s, "PO_"), "_DAY")
		if n, err := strconv.Atoi(mid); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

type Product struct {
	ID           gocql.UUID   `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Price        int64        `json:"price"`
	Stock        int          `json:"stock"`
	Sold         int          `json:"sold"`
	Availability Availability `json:"availability"`
	Images       AssetList    `json:"images"`
	CreatedAt    *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time   `json:"updatedAt,omitempty"`
}
