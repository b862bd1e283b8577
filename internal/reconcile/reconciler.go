// Package reconcile brings local orders back in line with the payment
// gateway. The webhook is the primary input; transaction detail reads feed
// the same state machine so a missed callback heals on the next payment
// page visit. Every mutation goes through a compare-and-set, so replays and
// concurrent deliveries converge instead of double-applying.
package reconcile

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"kirana_back_end/internal/config"
	"kirana_back_end/internal/httperr"
	"kirana_back_end/internal/models"
	"kirana_back_end/internal/store"
	"kirana_back_end/internal/tripay"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

type OrderRepo interface {
	GetByID(gocql.UUID) (*models.Order, error)
	FindByReference(string) (*models.Order, error)
	CompareAndSetStatus(id gocql.UUID, expected, next models.OrderStatus) (bool, error)
	MarkPaid(id gocql.UUID, paidAt time.Time, reference, method, methodCode string) (bool, error)
}

type ProductRepo interface {
	DecrementForItems([]models.OrderItem) error
}

type DiscountRepo interface {
	GetByCode(string) (*models.Discount, error)
	RecordUsage(models.DiscountUsage) (bool, error)
}

type CartRepo interface {
	Clear(userID gocql.UUID) error
}

// Event names passed to the Notify hook.
const (
	EventPaid    = "payment.paid"
	EventExpired = "payment.expired"
	EventRevived = "order.revived"
)

type Reconciler struct {
	Orders    OrderRepo
	Products  ProductRepo
	Discounts DiscountRepo
	Cart      CartRepo

	// Notify is the best-effort side-effect hook (emails, in-app
	// notifications). It must not block; failures never affect the
	// reconciliation outcome.
	Notify func(event string, order *models.Order)

	Now func() time.Time
}

func NewReconciler(orders OrderRepo, products ProductRepo, discounts DiscountRepo, cart CartRepo) *Reconciler {
	return &Reconciler{
		Orders:    orders,
		Products:  products,
		Discounts: discounts,
		Cart:      cart,
		Now:       time.Now,
	}
}

// CallbackPayload is the webhook body.
type CallbackPayload struct {
	Reference         string `json:"reference"`
	MerchantRef       string `json:"merchant_ref"`
	PaymentMethod     string `json:"payment_method"`
	PaymentMethodCode string `json:"payment_method_code"`
	TotalAmount       int64  `json:"total_amount"`
	AmountReceived    int64  `json:"amount_received"`
	IsClosedPayment   int    `json:"is_closed_payment"`
	Status            string `json:"status"`
	PaidAt            int64  `json:"paid_at"`
	Note              string `json:"note"`
	Signature         string `json:"signature"`
}

// Result is the webhook response body the gateway expects.
type Result struct {
	Success bool   `json:"success"`
	OK      bool   `json:"ok"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// ProcessCallback verifies and applies one webhook delivery. rawBody must be
// the body bytes exactly as received; the signature covers them, not a
// re-serialization.
func (r *Reconciler) ProcessCallback(rawBody []byte, headerSignature, event string) (*Result, error) {
	if event != "" && event != "payment_status" {
		return nil, httperr.Validation("Event callback tidak dikenali: " + event)
	}

	cfg := config.Tripay()

	var p CallbackPayload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return nil, httperr.Validation("Body callback bukan JSON yang valid")
	}

	if !tripay.VerifyCallbackSignature(cfg.PrivateKey, rawBody, headerSignature) {
		amount := p.TotalAmount
		if amount == 0 {
			amount = p.AmountReceived
		}
		legacy := p.Signature
		if legacy == "" {
			legacy = headerSignature
		}
		if !tripay.VerifyLegacySignature(cfg.PrivateKey, cfg.MerchantCode, p.MerchantRef, amount, legacy) {
			log.Printf("❌ callback signature mismatch for ref %s", p.MerchantRef)
			return nil, httperr.Signature("Signature callback tidak valid")
		}
	}

	order, err := r.resolveOrder(p.MerchantRef, p.Reference)
	if err != nil {
		return nil, err
	}

	// The gateway's vocabulary is closed. An unknown status is a delivery we
	// must not guess about.
	if _, _, err := tripay.MapStatus(p.Status, cfg.CompleteOnPaid); err != nil {
		return nil, httperr.Validation("Status pembayaran tidak dikenal: " + p.Status)
	}

	incomingPaid := tripay.IsPaidStatus(p.Status)

	// Replay short-circuit: a paid order receiving another paid confirmation
	// has nothing left to do.
	if order.PaidAt != nil && incomingPaid {
		return &Result{Success: true, OK: true, Status: string(order.Status)}, nil
	}

	// The expected amount is the sum of the persisted line items, not the
	// stored total. An order with a degenerate item list never blocks here.
	if itemsTotal := order.ItemsTotal(); incomingPaid && p.TotalAmount > 0 && itemsTotal > 0 && p.TotalAmount != itemsTotal {
		if cfg.StrictAmount {
			return nil, httperr.Validation("Nominal pembayaran tidak sesuai dengan order")
		}
		log.Printf("⚠️ callback amount %d differs from order %s item total %d", p.TotalAmount, order.ID, itemsTotal)
	}

	status, err := r.apply(order, p.Status, &p, false)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, OK: true, Status: string(status)}, nil
}

// FromDetail applies a gateway status observed on a transaction detail read.
// This is the Reconcile hook the payment detail service calls.
func (r *Reconciler) FromDetail(orderID gocql.UUID, gatewayStatus string) {
	order, err := r.Orders.GetByID(orderID)
	if err != nil {
		log.Printf("⚠️ detail reconcile: load order %s: %v", orderID, err)
		return
	}
	if _, _, err := tripay.MapStatus(gatewayStatus, config.Tripay().CompleteOnPaid); err != nil {
		log.Printf("⚠️ detail reconcile: %v", err)
		return
	}
	if order.PaidAt != nil && tripay.IsPaidStatus(gatewayStatus) {
		return
	}
	if _, err := r.apply(order, gatewayStatus, nil, true); err != nil {
		log.Printf("⚠️ detail reconcile for order %s: %v", order.ID, err)
	}
}

func (r *Reconciler) resolveOrder(merchantRef, reference string) (*models.Order, error) {
	if merchantRef != "" {
		if id, err := gocql.ParseUUID(strings.TrimSpace(merchantRef)); err == nil {
			if order, err := r.Orders.GetByID(id); err == nil {
				return order, nil
			} else if err != store.ErrNotFound {
				return nil, err
			}
		}
	}
	if reference != "" {
		order, err := r.Orders.FindByReference(reference)
		if err == nil {
			return order, nil
		}
		if err != store.ErrNotFound {
			return nil, err
		}
	}
	return nil, httperr.NotFound("Order untuk callback ini tidak ditemukan")
}

// apply runs the reconciliation state machine for one observed gateway
// status and returns the resulting local status. fromDetail marks the
// read-triggered path, which may revive a swept order back to PENDING while
// its payment window still stands.
func (r *Reconciler) apply(order *models.Order, rawStatus string, p *CallbackPayload, fromDetail bool) (models.OrderStatus, error) {
	cfg := config.Tripay()
	target, isPaid, err := tripay.MapStatus(rawStatus, cfg.CompleteOnPaid)
	if err != nil {
		return "", err
	}

	defer func() {
		if tripay.ClearsCart(rawStatus) && r.Cart != nil {
			if err := r.Cart.Clear(order.UserID); err != nil {
				log.Printf("⚠️ clear cart for user %s: %v", order.UserID, err)
			}
		}
	}()

	switch {
	case isPaid:
		return r.applyPaid(order, target, p)

	case target == models.StatusPending:
		// A pending confirmation carries no transition, except on the detail
		// path where it can revive an order the expiry sweep cancelled while
		// the payment window was in fact still open.
		if fromDetail && order.Status == models.StatusCancelled && r.windowStillOpen(order) {
			applied, err := r.Orders.CompareAndSetStatus(order.ID, models.StatusCancelled, models.StatusPending)
			if err != nil {
				return "", err
			}
			if applied {
				log.Printf("🔄 order %s revived to PENDING, gateway still awaits payment", order.ID)
				r.notify(EventRevived, order)
				return models.StatusPending, nil
			}
		}
		return order.Status, nil

	default: // EXPIRED / FAILED / CANCELLED
		if order.Status != models.StatusPending {
			// Never cancel an order that progressed; this is a stale or
			// out-of-order delivery.
			return order.Status, nil
		}
		applied, err := r.Orders.CompareAndSetStatus(order.ID, models.StatusPending, models.StatusCancelled)
		if err != nil {
			return "", err
		}
		if applied {
			r.notify(EventExpired, order)
			return models.StatusCancelled, nil
		}
		return order.Status, nil
	}
}

func (r *Reconciler) applyPaid(order *models.Order, target models.OrderStatus, p *CallbackPayload) (models.OrderStatus, error) {
	// MarkPaid applies at most once per order. The winner of this CAS owns
	// the payment side effects; every later delivery sees applied == false.
	paidAt := r.Now().UTC()
	reference := order.TripayReference
	method := order.PaymentMethod
	methodCode := order.PaymentMethodCode
	if p != nil {
		if p.PaidAt > 0 {
			paidAt = time.Unix(p.PaidAt, 0).UTC()
		}
		if p.Reference != "" {
			reference = p.Reference
		}
		if p.PaymentMethod != "" {
			method = p.PaymentMethod
		}
		if p.PaymentMethodCode != "" {
			methodCode = p.PaymentMethodCode
		}
	}
	firstConfirmation, err := r.Orders.MarkPaid(order.ID, paidAt, reference, method, methodCode)
	if err != nil {
		return "", err
	}

	current := order.Status
	switch {
	case current == models.StatusCompleted:
		// Terminal; the payment record above is all that can still change.

	case current == target || models.StockDeducted(current):
		// Already at or past the paid target.

	case current == models.StatusCancelled:
		// Late payment on a cancelled order resurrects it rather than
		// stranding the customer's money.
		applied, err := r.Orders.CompareAndSetStatus(order.ID, models.StatusCancelled, target)
		if err != nil {
			return "", err
		}
		if applied {
			log.Printf("🔄 order %s resurrected %s → %s on late payment", order.ID, current, target)
			if order.PickupStatus == models.PickupMissed {
				log.Printf("⚠️ order %s paid after its pickup slot was missed, schedule needs staff attention", order.ID)
			}
			current = target
		}

	default:
		applied, err := r.Orders.CompareAndSetStatus(order.ID, current, target)
		if err != nil {
			return "", err
		}
		if applied {
			current = target
		}
	}

	if firstConfirmation {
		if err := r.Products.DecrementForItems(order.Items); err != nil {
			log.Printf("❌ stock decrement for paid order %s: %v", order.ID, err)
		}
		r.recordDiscountUsage(order)
		r.notify(EventPaid, order)
	}
	return current, nil
}

// recordDiscountUsage re-asserts the redemption row. Creation already wrote
// it; the conditional insert makes this a no-op on the normal path and a
// repair on orders imported without one.
func (r *Reconciler) recordDiscountUsage(order *models.Order) {
	if order.DiscountCode == "" || r.Discounts == nil {
		return
	}
	d, err := r.Discounts.GetByCode(order.DiscountCode)
	if err != nil {
		log.Printf("⚠️ discount %s lookup for order %s: %v", order.DiscountCode, order.ID, err)
		return
	}
	if _, err := r.Discounts.RecordUsage(models.DiscountUsage{
		ID:         gocql.UUID(uuid.New()),
		DiscountID: d.ID,
		UserID:     order.UserID,
		OrderID:    order.ID,
		UsedAt:     r.Now().UTC(),
	}); err != nil {
		log.Printf("⚠️ record discount usage for order %s: %v", order.ID, err)
	}
}

func (r *Reconciler) windowStillOpen(order *models.Order) bool {
	if order.PaymentExpiresAt == nil {
		return false
	}
	skew := time.Duration(config.ExpirySkewMillis()) * time.Millisecond
	return r.Now().UTC().Before(order.PaymentExpiresAt.Add(skew))
}

func (r *Reconciler) notify(event string, order *models.Order) {
	if r.Notify == nil {
		return
	}
	r.Notify(event, order)
}
