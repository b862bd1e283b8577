// Package orders owns the order lifecycle: creation with pickup validation
// and discount application, status transitions with their stock side
// effects, admin removal, and the payment-expiry sweep.
package orders

import (
	"fmt"
	"log"
	"time"

	"kirana_back_end/internal/config"
	"kirana_back_end/internal/httperr"
	"kirana_back_end/internal/models"
	"kirana_back_end/internal/pickup"
	"kirana_back_end/internal/store"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// PaymentWindow is how long a PENDING order may stay unpaid before the
// sweep cancels it.
const PaymentWindow = time.Hour

type OrderRepo interface {
	Insert(*models.Order) error
	GetByID(gocql.UUID) (*models.Order, error)
	ListByUser(gocql.UUID) ([]models.Order, error)
	ListByStatus(models.OrderStatus) ([]models.Order, error)
	CompareAndSetStatus(id gocql.UUID, expected, next models.OrderStatus) (bool, error)
	SetPickupSchedule(id gocql.UUID, start, end, scheduledAt time.Time) error
	SetPickupStatus(id gocql.UUID, status models.PickupStatus, readyAt, pickedUpAt *time.Time) error
	ListScheduledPickups() ([]models.Order, error)
	Delete(gocql.UUID) error
}

type ProductRepo interface {
	GetByID(gocql.UUID) (*models.Product, error)
	DecrementForItems([]models.OrderItem) error
	RestoreForItems([]models.OrderItem) error
}

type DiscountRepo interface {
	GetByCode(string) (*models.Discount, error)
	CountUsageByUser(discountID, userID gocql.UUID) (int, error)
	RecordUsage(models.DiscountUsage) (bool, error)
	DeleteUsage(discountID, userID, orderID gocql.UUID) error
}

type Service struct {
	Orders    OrderRepo
	Products  ProductRepo
	Discounts DiscountRepo
	Now       func() time.Time
}

func NewService(orders OrderRepo, products ProductRepo, discounts DiscountRepo) *Service {
	return &Service{
		Orders:    orders,
		Products:  products,
		Discounts: discounts,
		Now:       time.Now,
	}
}

type CreateItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CreateInput struct {
	UserID       gocql.UUID
	Items        []CreateItem
	PickupAt     *time.Time // normalized to UTC by the handler
	DiscountCode string
}

// Create validates the cart against the catalog, applies the discount,
// derives the pickup window, and persists the order in PENDING with its
// item snapshots. Stock is not touched here; inventory moves only on
// payment confirmation.
func (s *Service) Create(in CreateInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, httperr.Validation("Pesanan harus berisi minimal satu produk")
	}

	now := s.Now().UTC()
	allowOOS := config.AllowOutOfStock()

	var items []models.OrderItem
	var availabilities []models.Availability
	var total int64
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, httperr.Validation("Jumlah produk tidak valid")
		}
		pid, err := gocql.ParseUUID(it.ProductID)
		if err != nil {
			return nil, httperr.Validation(fmt.Sprintf("ID produk tidak valid: %s", it.ProductID))
		}
		product, err := s.Products.GetByID(pid)
		if err == store.ErrNotFound {
			return nil, httperr.NotFound(fmt.Sprintf("Produk %s tidak ditemukan", it.ProductID))
		}
		if err != nil {
			return nil, err
		}
		if !allowOOS && product.Stock < it.Quantity {
			return nil, httperr.Conflict(fmt.Sprintf("Stok %s tidak mencukupi (tersisa %d)", product.Name, product.Stock))
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  it.Quantity,
		})
		availabilities = append(availabilities, product.Availability)
		total += product.Price * int64(it.Quantity)
	}

	var discount *models.Discount
	var discountAmount int64
	if in.DiscountCode != "" {
		d, reason, err := s.ValidateDiscount(in.DiscountCode, in.UserID)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			return nil, httperr.Validation("Kode diskon tidak dapat digunakan: " + reason)
		}
		discounted := d.Apply(total)
		discountAmount = total - discounted
		total = discounted
		discount = d
	}

	minPickup := s.MinPickupAt(now, availabilities)
	if in.PickupAt != nil {
		pcfg := config.Pickup()
		at := in.PickupAt.UTC()
		if at.Before(minPickup) {
			return nil, httperr.Scheduling("Waktu pengambilan terlalu cepat", minPickup)
		}
		if !pickup.IsWithinOperatingHours(pcfg.OpenTime, pcfg.CloseTime, at) {
			return nil, httperr.Scheduling("Waktu pengambilan di luar jam operasional", minPickup)
		}
	}

	expiresAt := now.Add(PaymentWindow)
	order := &models.Order{
		ID:               gocql.UUID(uuid.New()),
		UserID:           in.UserID,
		Status:           models.StatusPending,
		TotalAmount:      total,
		DiscountAmount:   discountAmount,
		PaymentExpiresAt: &expiresAt,
		PickupAt:         in.PickupAt,
		MinPickupAt:      &minPickup,
		PickupStatus:     models.PickupUnscheduled,
		CreatedAt:        now,
		UpdatedAt:        now,
		Items:            items,
	}
	if discount != nil {
		order.DiscountCode = discount.Code
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	if err := s.Orders.Insert(order); err != nil {
		return nil, err
	}

	// Record the redemption after the insert. If recording fails the whole
	// creation is rolled back, otherwise a retried checkout could exceed the
	// usage limits without leaving a trace.
	if discount != nil {
		_, err := s.Discounts.RecordUsage(models.DiscountUsage{
			ID:         gocql.UUID(uuid.New()),
			DiscountID: discount.ID,
			UserID:     in.UserID,
			OrderID:    order.ID,
			UsedAt:     now,
		})
		if err != nil {
			if delErr := s.Orders.Delete(order.ID); delErr != nil {
				log.Printf("❌ compensating delete of order %s failed: %v", order.ID, delErr)
			}
			return nil, fmt.Errorf("record discount usage: %w", err)
		}
	}

	return order, nil
}

// MinPickupAt computes the earliest pickup instant for a set of item
// availabilities at a given creation time.
func (s *Service) MinPickupAt(createdAt time.Time, availabilities []models.Availability) time.Time {
	pcfg := config.Pickup()
	hours, err := pickup.ParseHours(pcfg.OpenTime, pcfg.CloseTime)
	if err != nil {
		log.Printf("⚠️ invalid pickup hours %s-%s, using defaults: %v", pcfg.OpenTime, pcfg.CloseTime, err)
		hours = pickup.Hours{Open: 9 * 60, Close: 20 * 60}
	}
	lead := 0
	for _, a := range availabilities {
		if d := a.LeadDays(); d > lead {
			lead = d
		}
	}
	return pickup.MinPickupAt(createdAt, lead, pcfg.ReadyBufferMinutes, hours)
}

// ValidateDiscount checks a code for a user and returns the rejection
// reason, empty when the code is usable.
func (s *Service) ValidateDiscount(code string, userID gocql.UUID) (*models.Discount, string, error) {
	d, err := s.Discounts.GetByCode(code)
	if err == store.ErrNotFound {
		return nil, models.DiscountNotFound, nil
	}
	if err != nil {
		return nil, "", err
	}
	now := s.Now().UTC()
	if !d.IsActive {
		return nil, models.DiscountInactive, nil
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return nil, models.DiscountNotStarted, nil
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return nil, models.DiscountExpired, nil
	}
	if d.MaxUsage > 0 && d.UsageCount >= d.MaxUsage {
		return nil, models.DiscountMaxUsageReached, nil
	}
	if d.PerUserLimit > 0 {
		used, err := s.Discounts.CountUsageByUser(d.ID, userID)
		if err != nil {
			return nil, "", err
		}
		if used >= d.PerUserLimit {
			return nil, models.DiscountUserLimitReached, nil
		}
	}
	return d, "", nil
}

// UpdateStatus moves an order to a new status on behalf of an actor,
// enforcing ownership, the transition table, and the stock groups. The
// transition itself is a compare-and-set on the previously observed status
// so a concurrent writer loses cleanly instead of both applying.
func (s *Service) UpdateStatus(orderID gocql.UUID, statusStr string, actorID gocql.UUID, actorRole string) (*models.Order, error) {
	order, err := s.Orders.GetByID(orderID)
	if err == store.ErrNotFound {
		return nil, httperr.NotFound("Pesanan tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != actorID && actorRole != "admin" {
		return nil, httperr.Forbidden("Anda tidak berhak mengubah pesanan ini")
	}

	next, ok := models.ParseOrderStatus(statusStr)
	if !ok {
		return nil, httperr.Validation("Status pesanan tidak dikenal: " + statusStr)
	}
	from := order.Status
	if from == next {
		return order, nil
	}
	if !models.CanTransition(from, next, config.AllowPendingToCompleted()) {
		return nil, httperr.Conflict(fmt.Sprintf("Transisi status %s → %s tidak diizinkan", from, next))
	}

	applied, err := s.Orders.CompareAndSetStatus(orderID, from, next)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, httperr.Conflict("Pesanan sedang diubah oleh proses lain, coba lagi")
	}

	s.applyStockSideEffects(order, from, next)

	order.Status = next
	order.UpdatedAt = s.Now().UTC()
	return order, nil
}

// applyStockSideEffects moves inventory when a transition crosses the
// stock-deducted boundary. Failures are logged, not propagated; the status
// transition has already been committed.
func (s *Service) applyStockSideEffects(order *models.Order, from, to models.OrderStatus) {
	switch {
	case !models.StockDeducted(from) && models.StockDeducted(to):
		if err := s.Products.DecrementForItems(order.Items); err != nil {
			log.Printf("❌ stock decrement for order %s: %v", order.ID, err)
		}
	case to == models.StatusCancelled && models.StockDeducted(from):
		// PENDING never deducted, so only paid-side statuses restore.
		if err := s.Products.RestoreForItems(order.Items); err != nil {
			log.Printf("❌ stock restore for order %s: %v", order.ID, err)
		}
	}
}

// Remove hard-deletes an order (admin only, enforced by the route). Stock
// is restored first unless the order never held any.
func (s *Service) Remove(orderID gocql.UUID) error {
	order, err := s.Orders.GetByID(orderID)
	if err == store.ErrNotFound {
		return httperr.NotFound("Pesanan tidak ditemukan")
	}
	if err != nil {
		return err
	}
	if models.StockDeducted(order.Status) {
		if err := s.Products.RestoreForItems(order.Items); err != nil {
			return err
		}
	}
	if order.DiscountCode != "" {
		if d, err := s.Discounts.GetByCode(order.DiscountCode); err == nil {
			if err := s.Discounts.DeleteUsage(d.ID, order.UserID, order.ID); err != nil {
				log.Printf("⚠️ release discount usage for order %s: %v", order.ID, err)
			}
		}
	}
	return s.Orders.Delete(orderID)
}

// SweepExpired cancels PENDING orders whose payment window plus the clock
// skew allowance has passed. The CAS makes the sweep idempotent and safe to
// run concurrently with webhook reconciliation; no stock was deducted for
// PENDING so there is nothing to compensate.
func (s *Service) SweepExpired() (int, error) {
	pending, err := s.Orders.ListByStatus(models.StatusPending)
	if err != nil {
		return 0, err
	}
	skew := time.Duration(config.ExpirySkewMillis()) * time.Millisecond
	now := s.Now().UTC()

	cancelled := 0
	for i := range pending {
		o := &pending[i]
		if o.PaymentExpiresAt == nil || now.Before(o.PaymentExpiresAt.Add(skew)) {
			continue
		}
		applied, err := s.Orders.CompareAndSetStatus(o.ID, models.StatusPending, models.StatusCancelled)
		if err != nil {
			log.Printf("⚠️ expiry sweep: cancel %s: %v", o.ID, err)
			continue
		}
		if applied {
			cancelled++
		}
	}
	return cancelled, nil
}
