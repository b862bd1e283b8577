package tripay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kirana_back_end/internal/models"
	"kirana_back_end/internal/store"

	"github.com/gocql/gocql"
)

type fakeOrderSource struct {
	orders    map[gocql.UUID]*models.Order
	setRefs   []string
	refErrors int
}

func (f *fakeOrderSource) GetByID(id gocql.UUID) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderSource) SetTripayReference(id gocql.UUID, reference, method, methodCode string, expiresAt *time.Time) error {
	f.setRefs = append(f.setRefs, reference)
	if o, ok := f.orders[id]; ok {
		o.TripayReference = reference
	}
	return nil
}

type fakeUserSource struct{ user *models.User }

func (f *fakeUserSource) GetByID(id gocql.UUID) (*models.User, error) {
	return f.user, nil
}

func testOrder(t *testing.T) *models.Order {
	t.Helper()
	userID := gocql.TimeUUID()
	return &models.Order{
		ID:                gocql.TimeUUID(),
		UserID:            userID,
		Status:            models.StatusPending,
		TotalAmount:       150000,
		PaymentMethod:     "BRI Virtual Account",
		PaymentMethodCode: "BRIVA",
		TripayReference:   "DEV-OLD",
		Items: []models.OrderItem{
			{ProductID: gocql.TimeUUID(), Name: "Buket Mawar", Price: 150000, Quantity: 1},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func newTestService(order *models.Order, baseURL string) (*Service, *fakeOrderSource) {
	orders := &fakeOrderSource{orders: map[gocql.UUID]*models.Order{order.ID: order}}
	users := &fakeUserSource{user: &models.User{ID: order.UserID, Name: "Sari", Email: "sari@example.com"}}
	svc := NewService(testClient(baseURL), orders, users)
	return svc, orders
}

func TestGetDetailSelfHealsLostTransaction(t *testing.T) {
	order := testOrder(t)

	detailCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transaction/detail":
			detailCalls++
			if detailCalls == 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "Transaction not found"})
				return
			}
			if ref := r.URL.Query().Get("reference"); ref != "DEV-NEW" {
				t.Errorf("retry used reference %q, want the recreated one", ref)
			}
			jsonOK(w, map[string]interface{}{"status": "UNPAID", "reference": "DEV-NEW", "merchant_ref": order.ID.String(), "amount": 150000})
		case "/transaction/create":
			var payload map[string]interface{}
			json.NewDecoder(r.Body).Decode(&payload)
			if payload["method"] != "BRIVA" {
				t.Errorf("recreate method = %v, want the stored BRIVA", payload["method"])
			}
			jsonOK(w, map[string]interface{}{"reference": "DEV-NEW", "status": "UNPAID", "merchant_ref": order.ID.String()})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	svc, orders := newTestService(order, srv.URL)
	var reconciled []string
	svc.Reconcile = func(orderID gocql.UUID, status string) {
		reconciled = append(reconciled, status)
	}

	d, err := svc.GetDetail(context.Background(), order.ID, order.UserID, false)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if d.IsLocalFallback {
		t.Error("self-heal succeeded, result must not be a local fallback")
	}
	if d.Reference != "DEV-NEW" {
		t.Errorf("reference = %q, want DEV-NEW", d.Reference)
	}
	if len(orders.setRefs) != 1 || orders.setRefs[0] != "DEV-NEW" {
		t.Errorf("stored references = %v, want [DEV-NEW]", orders.setRefs)
	}
	if detailCalls != 2 {
		t.Errorf("detail calls = %d, want exactly one retry", detailCalls)
	}
	if len(reconciled) != 1 || reconciled[0] != "UNPAID" {
		t.Errorf("reconcile calls = %v", reconciled)
	}
}

func TestGetDetailNoSelfHealPastPending(t *testing.T) {
	order := testOrder(t)
	order.Status = models.StatusProcessing
	now := time.Now().UTC()
	order.PaidAt = &now

	creates := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/transaction/create" {
			creates++
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "not found"})
	}))
	defer srv.Close()

	svc, orders := newTestService(order, srv.URL)
	d, err := svc.GetDetail(context.Background(), order.ID, order.UserID, false)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if creates != 0 {
		t.Errorf("creates = %d, a paid order must never be recreated", creates)
	}
	if !d.IsLocalFallback {
		t.Error("expected the local fallback view")
	}
	if d.Status != "PROCESSING" {
		t.Errorf("fallback status = %q, want the local PROCESSING", d.Status)
	}
	if len(orders.setRefs) != 0 {
		t.Errorf("order was mutated: %v", orders.setRefs)
	}
}

func TestGetDetailFallbackOnOutage(t *testing.T) {
	order := testOrder(t)
	expires := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second)
	order.PaymentExpiresAt = &expires

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc, _ := newTestService(order, srv.URL)
	reconciled := false
	svc.Reconcile = func(gocql.UUID, string) { reconciled = true }

	d, err := svc.GetDetail(context.Background(), order.ID, order.UserID, false)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if !d.IsLocalFallback {
		t.Fatal("expected the local fallback view")
	}
	if d.Status != "UNPAID" {
		t.Errorf("fallback status = %q, want UNPAID for a pending order", d.Status)
	}
	if d.ExpiredTime != expires.Unix() {
		t.Errorf("expired_time = %d, want %d", d.ExpiredTime, expires.Unix())
	}
	if reconciled {
		t.Error("fallback views must not trigger reconciliation")
	}
}

func TestGetDetailOwnership(t *testing.T) {
	order := testOrder(t)
	svc, _ := newTestService(order, "http://127.0.0.1:0")

	stranger := gocql.TimeUUID()
	if _, err := svc.GetDetail(context.Background(), order.ID, stranger, false); err == nil {
		t.Error("foreign user read the payment detail")
	}
	if _, err := svc.GetDetail(context.Background(), gocql.TimeUUID(), order.UserID, false); err == nil {
		t.Error("missing order did not error")
	}
}

func TestPayRejectsNonPendingOrders(t *testing.T) {
	order := testOrder(t)
	order.Status = models.StatusCompleted
	svc, _ := newTestService(order, "http://127.0.0.1:0")

	if _, err := svc.Pay(context.Background(), order.ID, order.UserID, false, "QRIS"); err == nil {
		t.Error("completed order accepted a new payment")
	}
}
