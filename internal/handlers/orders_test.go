package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kirana_back_end/internal/models"
	"kirana_back_end/internal/orders"
	"kirana_back_end/internal/pickup"
	"kirana_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

func TestResolvePickupAt(t *testing.T) {
	wantUTC := time.Date(2024, 6, 11, 7, 0, 0, 0, time.UTC) // 14:00 Jakarta

	t.Run("rfc3339", func(t *testing.T) {
		req := createOrderRequest{PickupAt: "2024-06-11T14:00:00+07:00"}
		got, err := req.resolvePickupAt()
		if err != nil {
			t.Fatalf("resolvePickupAt: %v", err)
		}
		if !got.Equal(wantUTC) {
			t.Errorf("got %v, want %v", got, wantUTC)
		}
	})

	t.Run("local wall time", func(t *testing.T) {
		req := createOrderRequest{PickupAtLocal: "2024-06-11T14:00", PickupTimezone: "Asia/Jakarta"}
		got, err := req.resolvePickupAt()
		if err != nil {
			t.Fatalf("resolvePickupAt: %v", err)
		}
		if !got.Equal(wantUTC) {
			t.Errorf("got %v, want %v", got, wantUTC)
		}
	})

	t.Run("local wall time without explicit timezone", func(t *testing.T) {
		req := createOrderRequest{PickupAtLocal: "2024-06-11T14:00"}
		got, err := req.resolvePickupAt()
		if err != nil {
			t.Fatalf("resolvePickupAt: %v", err)
		}
		if !got.Equal(wantUTC) {
			t.Errorf("got %v, want %v", got, wantUTC)
		}
	})

	t.Run("date and time pair", func(t *testing.T) {
		req := createOrderRequest{PickupDate: "2024-06-11", PickupTime: "14:00"}
		got, err := req.resolvePickupAt()
		if err != nil {
			t.Fatalf("resolvePickupAt: %v", err)
		}
		if !got.Equal(wantUTC) {
			t.Errorf("got %v, want %v", got, wantUTC)
		}
	})

	t.Run("no pickup requested", func(t *testing.T) {
		req := createOrderRequest{}
		got, err := req.resolvePickupAt()
		if err != nil || got != nil {
			t.Errorf("got (%v, %v), want (nil, nil)", got, err)
		}
	})

	t.Run("ambiguous forms rejected", func(t *testing.T) {
		req := createOrderRequest{PickupAt: "2024-06-11T14:00:00Z", PickupDate: "2024-06-11", PickupTime: "14:00"}
		if _, err := req.resolvePickupAt(); err == nil {
			t.Error("two spellings accepted")
		}
	})

	t.Run("foreign timezone rejected", func(t *testing.T) {
		req := createOrderRequest{PickupAtLocal: "2024-06-11T14:00", PickupTimezone: "Europe/Brussels"}
		if _, err := req.resolvePickupAt(); err == nil {
			t.Error("non-Jakarta timezone accepted")
		}
	})

	t.Run("incomplete pair rejected", func(t *testing.T) {
		req := createOrderRequest{PickupDate: "2024-06-11"}
		if _, err := req.resolvePickupAt(); err == nil {
			t.Error("date without time accepted")
		}
	})

	t.Run("all spellings agree with the calendar", func(t *testing.T) {
		viaPair, _ := pickup.ToUTC("2024-06-11", "14:00")
		if !viaPair.Equal(wantUTC) {
			t.Errorf("calendar disagrees: %v vs %v", viaPair, wantUTC)
		}
	})
}

type stubOrderRepo struct{ inserted []*models.Order }

func (s *stubOrderRepo) Insert(o *models.Order) error {
	s.inserted = append(s.inserted, o)
	return nil
}
func (s *stubOrderRepo) GetByID(gocql.UUID) (*models.Order, error) { return nil, store.ErrNotFound }
func (s *stubOrderRepo) ListByUser(gocql.UUID) ([]models.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) ListByStatus(models.OrderStatus) ([]models.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) CompareAndSetStatus(gocql.UUID, models.OrderStatus, models.OrderStatus) (bool, error) {
	return false, nil
}
func (s *stubOrderRepo) SetPickupSchedule(gocql.UUID, time.Time, time.Time, time.Time) error {
	return nil
}
func (s *stubOrderRepo) SetPickupStatus(gocql.UUID, models.PickupStatus, *time.Time, *time.Time) error {
	return nil
}
func (s *stubOrderRepo) ListScheduledPickups() ([]models.Order, error) { return nil, nil }
func (s *stubOrderRepo) Delete(gocql.UUID) error                      { return nil }

type stubProductRepo struct{ product models.Product }

func (s *stubProductRepo) GetByID(id gocql.UUID) (*models.Product, error) {
	cp := s.product
	cp.ID = id
	return &cp, nil
}
func (s *stubProductRepo) DecrementForItems([]models.OrderItem) error { return nil }
func (s *stubProductRepo) RestoreForItems([]models.OrderItem) error   { return nil }

type stubDiscountRepo struct{}

func (stubDiscountRepo) GetByCode(string) (*models.Discount, error) { return nil, store.ErrNotFound }
func (stubDiscountRepo) CountUsageByUser(gocql.UUID, gocql.UUID) (int, error) {
	return 0, nil
}
func (stubDiscountRepo) RecordUsage(models.DiscountUsage) (bool, error)  { return true, nil }
func (stubDiscountRepo) DeleteUsage(gocql.UUID, gocql.UUID, gocql.UUID) error { return nil }

type stubCart struct {
	items []models.CartItem
	gets  int
}

func (s *stubCart) Get(ctx context.Context, userID string) ([]models.CartItem, error) {
	s.gets++
	return s.items, nil
}

func TestCreateFallsBackToCart(t *testing.T) {
	gin.SetMode(gin.TestMode)

	productID := gocql.TimeUUID()
	repo := &stubOrderRepo{}
	svc := orders.NewService(repo, &stubProductRepo{product: models.Product{
		Name:         "Buket Mawar",
		Price:        150000,
		Stock:        10,
		Availability: models.AvailabilityReady,
	}}, stubDiscountRepo{})
	cart := &stubCart{items: []models.CartItem{
		{ProductID: productID.String(), Name: "Buket Mawar", Price: 150000, Quantity: 2},
	}}
	h := NewOrderHandler(svc, nil, cart)

	userID := gocql.TimeUUID()
	r := gin.New()
	r.POST("/api/orders", func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Set("role", "user")
		h.Create(c)
	})

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("empty item list checks out the cart", func(t *testing.T) {
		w := post(`{}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if cart.gets != 1 {
			t.Errorf("cart reads = %d, want 1", cart.gets)
		}
		if len(repo.inserted) != 1 {
			t.Fatalf("orders inserted = %d, want 1", len(repo.inserted))
		}
		order := repo.inserted[0]
		if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
			t.Errorf("order items = %+v, want the cart's quantity-2 line", order.Items)
		}
		if order.TotalAmount != 300000 {
			t.Errorf("total = %d, want 300000", order.TotalAmount)
		}
	})

	t.Run("explicit items win over the cart", func(t *testing.T) {
		body := fmt.Sprintf(`{"items":[{"productId":%q,"quantity":1}]}`, productID.String())
		w := post(body)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if cart.gets != 1 {
			t.Errorf("cart reads = %d, explicit items must not consult the cart", cart.gets)
		}
	})

	t.Run("empty cart still rejects", func(t *testing.T) {
		cart.items = nil
		w := post(`{}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400 for an empty cart", w.Code)
		}
	})
}
