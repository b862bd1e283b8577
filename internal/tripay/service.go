package tripay

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"kirana_back_end/internal/httperr"
	"kirana_back_end/internal/models"
	"kirana_back_end/internal/store"

	"github.com/gocql/gocql"
)

// OrderSource is the slice of the order store this adapter needs.
type OrderSource interface {
	GetByID(id gocql.UUID) (*models.Order, error)
	SetTripayReference(id gocql.UUID, reference, method, methodCode string, expiresAt *time.Time) error
}

// UserSource resolves the customer fields the gateway requires on creation.
type UserSource interface {
	GetByID(id gocql.UUID) (*models.User, error)
}

// Service orchestrates payment creation and transaction detail reads for
// orders. Detail reads are self-healing: a transaction the gateway lost
// (sandbox resets, expired references) is recreated once from the local
// order before giving up, and a successful read feeds the reconciler so a
// missed webhook still lands.
type Service struct {
	Client *Client
	Orders OrderSource
	Users  UserSource

	// Reconcile is set at wiring time. It receives the order and the
	// gateway status after every successful detail fetch.
	Reconcile func(orderID gocql.UUID, gatewayStatus string)
}

func NewService(client *Client, orders OrderSource, users UserSource) *Service {
	return &Service{Client: client, Orders: orders, Users: users}
}

func (s *Service) loadOwned(orderID gocql.UUID, userID gocql.UUID, isAdmin bool) (*models.Order, error) {
	order, err := s.Orders.GetByID(orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, httperr.NotFound("Order tidak ditemukan")
		}
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, httperr.Forbidden("Order ini bukan milik Anda")
	}
	return order, nil
}

// Pay creates a closed transaction for a pending order and stores the
// gateway reference on the order.
func (s *Service) Pay(ctx context.Context, orderID, userID gocql.UUID, isAdmin bool, method string) (*Detail, error) {
	order, err := s.loadOwned(orderID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if order.Status != models.StatusPending {
		return nil, httperr.Conflict("Order sudah tidak menunggu pembayaran")
	}
	if order.PaidAt != nil {
		return nil, httperr.Conflict("Order sudah dibayar")
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, httperr.Validation("Metode pembayaran wajib dipilih")
	}

	tx, err := s.createForOrder(ctx, order, method)
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if tx.ExpiredTime > 0 {
		t := time.Unix(tx.ExpiredTime, 0).UTC()
		expiresAt = &t
	}
	if err := s.Orders.SetTripayReference(order.ID, tx.Reference, method, method, expiresAt); err != nil {
		log.Printf("⚠️ store tripay reference for order %s: %v", order.ID, err)
	}

	return &Detail{
		Status:       strings.ToUpper(tx.Status),
		MerchantRef:  tx.MerchantRef,
		Reference:    tx.Reference,
		Amount:       tx.Amount,
		Method:       method,
		PayCode:      tx.PayCode,
		QRString:     tx.QRString,
		QRURL:        tx.QRURL,
		ExpiredTime:  tx.ExpiredTime,
		Instructions: []Instruction{},
		PaymentURL:   tx.CheckoutURL,
	}, nil
}

func (s *Service) createForOrder(ctx context.Context, order *models.Order, method string) (*Transaction, error) {
	user, err := s.Users.GetByID(order.UserID)
	if err != nil {
		return nil, httperr.NotFound("Pelanggan order tidak ditemukan")
	}

	items := make([]TransactionItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, TransactionItem{
			SKU:      it.ProductID.String(),
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	var expired int64
	if order.PaymentExpiresAt != nil {
		expired = order.PaymentExpiresAt.Unix()
	}
	return s.Client.CreateClosedTransaction(ctx, CreateParams{
		MerchantRef:   order.ID.String(),
		Amount:        order.TotalAmount,
		Method:        method,
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
		CustomerPhone: user.Phone,
		Items:         items,
		ExpiredTime:   expired,
	})
}

// GetDetail returns the gateway's view of an order's payment for the payment
// page. The remote transaction is the source of truth; when it cannot be
// reached the local order stands in, flagged as a fallback and never
// mutated.
func (s *Service) GetDetail(ctx context.Context, orderID, userID gocql.UUID, isAdmin bool) (*Detail, error) {
	order, err := s.loadOwned(orderID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	detail, err := s.fetchWithSelfHeal(ctx, order)
	if err != nil {
		log.Printf("⚠️ tripay detail for order %s: %v, serving local fallback", order.ID, err)
		return s.localFallback(order), nil
	}

	if s.Reconcile != nil && detail.Status != "" {
		s.Reconcile(order.ID, detail.Status)
	}
	return detail, nil
}

// fetchWithSelfHeal tries the stored reference first. A not-found answer for
// an order that is still awaiting payment means the remote transaction is
// gone, so it is recreated once with the order's stored payment method and
// the detail read retried against the new reference. Orders past PENDING are
// never recreated.
func (s *Service) fetchWithSelfHeal(ctx context.Context, order *models.Order) (*Detail, error) {
	detail, err := s.Client.FetchDetail(ctx, order.TripayReference, order.ID.String())
	if err == nil {
		return detail, nil
	}
	if !errors.Is(err, ErrTransactionNotFound) {
		return nil, err
	}
	if order.Status != models.StatusPending || order.PaidAt != nil || order.PaymentMethodCode == "" {
		return nil, err
	}

	log.Printf("🔄 recreating lost tripay transaction for order %s (%s)", order.ID, order.PaymentMethodCode)
	tx, createErr := s.createForOrder(ctx, order, order.PaymentMethodCode)
	if createErr != nil {
		return nil, createErr
	}
	var expiresAt *time.Time
	if tx.ExpiredTime > 0 {
		t := time.Unix(tx.ExpiredTime, 0).UTC()
		expiresAt = &t
	}
	if err := s.Orders.SetTripayReference(order.ID, tx.Reference, order.PaymentMethod, order.PaymentMethodCode, expiresAt); err != nil {
		log.Printf("⚠️ store recreated tripay reference for order %s: %v", order.ID, err)
	}
	return s.Client.FetchDetail(ctx, tx.Reference, order.ID.String())
}

// localFallback builds a detail view from the order row alone.
func (s *Service) localFallback(order *models.Order) *Detail {
	status := string(order.Status)
	if order.Status == models.StatusPending {
		status = "UNPAID"
	}
	d := &Detail{
		Status:          status,
		MerchantRef:     order.ID.String(),
		Reference:       order.TripayReference,
		Amount:          order.TotalAmount,
		Method:          order.PaymentMethodCode,
		PaymentMethod:   order.PaymentMethodCode,
		PaymentName:     order.PaymentMethod,
		Instructions:    []Instruction{},
		IsLocalFallback: true,
	}
	if order.PaymentExpiresAt != nil {
		d.ExpiredTime = order.PaymentExpiresAt.Unix()
		d.ExpiredAt = order.PaymentExpiresAt.UTC().Format(time.RFC3339)
	}
	return d
}
