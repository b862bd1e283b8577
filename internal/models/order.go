package models

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

// OrderStatus is the payment-driven lifecycle of an order.
type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusProcessing     OrderStatus = "PROCESSING"
	StatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	StatusCompleted      OrderStatus = "COMPLETED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

// PickupStatus tracks the physical handover, independent of payment.
type PickupStatus string

const (
	PickupUnscheduled    PickupStatus = "UNSCHEDULED"
	PickupScheduled      PickupStatus = "SCHEDULED"
	PickupReadyForPickup PickupStatus = "READY_FOR_PICKUP"
	PickupMissed         PickupStatus = "MISSED"
)

type Order struct {
	ID                gocql.UUID   `json:"id"`
	UserID            gocql.UUID   `json:"userId"`
	Status            OrderStatus  `json:"status"`
	TotalAmount       int64        `json:"totalAmount"`
	DiscountCode      string       `json:"discountCode,omitempty"`
	DiscountAmount    int64        `json:"discountAmount,omitempty"`
	PaymentMethod     string       `json:"paymentMethod,omitempty"`
	PaymentMethodCode string       `json:"paymentMethodCode,omitempty"`
	TripayReference   string       `json:"tripayReference,omitempty"`
	PaidAt            *time.Time   `json:"paidAt,omitempty"`
	PaymentExpiresAt  *time.Time   `json:"paymentExpiresAt,omitempty"`
	PickupAt          *time.Time   `json:"pickupAt,omitempty"`
	MinPickupAt       *time.Time   `json:"minPickupAt,omitempty"`
	PickupStart       *time.Time   `json:"pickupStart,omitempty"`
	PickupEnd         *time.Time   `json:"pickupEnd,omitempty"`
	PickupStatus      PickupStatus `json:"pickupStatus"`
	ScheduledAt       *time.Time   `json:"scheduledAt,omitempty"`
	ReadyAt           *time.Time   `json:"readyAt,omitempty"`
	PickedUpAt        *time.Time   `json:"pickedUpAt,omitempty"`
	ReminderDaySent   bool         `json:"-"`
	ReminderHourSent  bool         `json:"-"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
	Items             []OrderItem  `json:"items,omitempty"`
}

// OrderItem is an immutable snapshot taken at order time. Price is never
// re-read from the live product.
type OrderItem struct {
	OrderID   gocql.UUID `json:"orderId"`
	ProductID gocql.UUID `json:"productId"`
	Name      string     `json:"name"`
	Price     int64      `json:"price"`
	Quantity  int        `json:"quantity"`
}

// ItemsTotal is the sum of line amounts, used for the callback cross-check.
func (o *Order) ItemsTotal() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.Price * int64(it.Quantity)
	}
	return sum
}

// Code renders the human-readable order number shown in the admin panel,
// e.g. ORD-20240101-0042.
func (o *Order) Code() string {
	h := fnv.New32a()
	h.Write([]byte(o.ID.String()))
	return fmt.Sprintf("ORD-%s-%04d", o.CreatedAt.UTC().Format("20060102"), h.Sum32()%10000)
}

// ParseOrderStatus validates an inbound status string against the closed set.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusProcessing:
		return StatusProcessing, true
	case StatusReadyForPickup:
		return StatusReadyForPickup, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusCancelled:
		return StatusCancelled, true
	}
	return "", false
}

var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusReadyForPickup, StatusCompleted, StatusCancelled},
	StatusReadyForPickup: {StatusCompleted, StatusCancelled},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// CanTransition reports whether from may move to target. COMPLETED is
// terminal. CANCELLED is terminal here too; the late-payment resurrection
// exception lives in the reconciler, not in this table.
// allowPendingToCompleted opens the counter-payment shortcut.
func CanTransition(from, to OrderStatus, allowPendingToCompleted bool) bool {
	if from == to {
		return true
	}
	if allowPendingToCompleted && from == StatusPending && to == StatusCompleted {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StockDeducted reports whether an order in this status holds inventory.
// PENDING never deducts, so cancellation from PENDING restores nothing.
func StockDeducted(s OrderStatus) bool {
	switch s {
	case StatusProcessing, StatusReadyForPickup, StatusCompleted:
		return true
	}
	return false
}
