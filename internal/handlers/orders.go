package handlers

import (
	"context"
	"net/http"
	"time"

	"kirana_back_end/internal/httperr"
	"kirana_back_end/internal/models"
	"kirana_back_end/internal/orders"
	"kirana_back_end/internal/pickup"
	"kirana_back_end/internal/store"
	"kirana_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

// CartSource supplies the checkout items when the request carries no
// explicit list.
type CartSource interface {
	Get(ctx context.Context, userID string) ([]models.CartItem, error)
}

type OrderHandler struct {
	Svc   *orders.Service
	Users *store.UserStore
	Cart  CartSource
}

func NewOrderHandler(svc *orders.Service, users *store.UserStore, cart CartSource) *OrderHandler {
	return &OrderHandler{Svc: svc, Users: users, Cart: cart}
}

type createOrderRequest struct {
	Items        []orders.CreateItem `json:"items"`
	DiscountCode string              `json:"discountCode"`

	// Three accepted pickup spellings, resolved to a single UTC instant.
	PickupAt       string `json:"pickupAt"`       // RFC 3339
	PickupAtLocal  string `json:"pickupAtLocal"`  // 2006-01-02T15:04, Jakarta wall time
	PickupTimezone string `json:"pickupTimezone"` // must be Asia/Jakarta when set
	PickupDate     string `json:"pickup_date"`    // YYYY-MM-DD
	PickupTime     string `json:"pickup_time"`    // HH:mm
}

// resolvePickupAt normalizes the request's pickup spelling to UTC. Supplying
// more than one spelling is rejected rather than silently picking a winner.
func (r *createOrderRequest) resolvePickupAt() (*time.Time, error) {
	forms := 0
	if r.PickupAt != "" {
		forms++
	}
	if r.PickupAtLocal != "" {
		forms++
	}
	if r.PickupDate != "" || r.PickupTime != "" {
		forms++
	}
	if forms == 0 {
		return nil, nil
	}
	if forms > 1 {
		return nil, httperr.Validation("Gunakan satu format waktu pengambilan saja")
	}

	switch {
	case r.PickupAt != "":
		t, err := time.Parse(time.RFC3339, r.PickupAt)
		if err != nil {
			return nil, httperr.Validation("pickupAt harus berformat RFC 3339")
		}
		utc := t.UTC()
		return &utc, nil

	case r.PickupAtLocal != "":
		if r.PickupTimezone != "" && r.PickupTimezone != "Asia/Jakarta" {
			return nil, httperr.Validation("pickupTimezone hanya mendukung Asia/Jakarta")
		}
		t, err := time.ParseInLocation("2006-01-02T15:04", r.PickupAtLocal, pickup.Jakarta)
		if err != nil {
			return nil, httperr.Validation("pickupAtLocal harus berformat YYYY-MM-DDTHH:mm")
		}
		utc := t.UTC()
		return &utc, nil

	default:
		if r.PickupDate == "" || r.PickupTime == "" {
			return nil, httperr.Validation("pickup_date dan pickup_time harus diisi bersama")
		}
		t, err := pickup.ToUTC(r.PickupDate, r.PickupTime)
		if err != nil {
			return nil, httperr.Validation(err.Error())
		}
		return &t, nil
	}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	userID, _, ok := actor(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body permintaan tidak valid"})
		return
	}
	pickupAt, err := req.resolvePickupAt()
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	// No explicit item list means checkout of the stored cart.
	if len(req.Items) == 0 && h.Cart != nil {
		cartItems, err := h.Cart.Get(c.Request.Context(), userID.String())
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		for _, it := range cartItems {
			req.Items = append(req.Items, orders.CreateItem{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	}

	order, err := h.Svc.Create(orders.CreateInput{
		UserID:       userID,
		Items:        req.Items,
		PickupAt:     pickupAt,
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderView(order))
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	userID, role, ok := actor(c)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}

	order, err := h.Svc.Orders.GetByID(orderID)
	if err == store.ErrNotFound {
		httperr.Respond(c, httperr.NotFound("Pesanan tidak ditemukan"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if order.UserID != userID && role != "admin" {
		httperr.Respond(c, httperr.Forbidden("Pesanan ini bukan milik Anda"))
		return
	}
	c.JSON(http.StatusOK, orderView(order))
}

// List handles GET /api/orders, the caller's own orders.
func (h *OrderHandler) List(c *gin.Context) {
	userID, _, ok := actor(c)
	if !ok {
		return
	}
	list, err := h.Svc.Orders.ListByUser(userID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}

// UpdateStatus handles PATCH /api/orders/:id/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	userID, role, ok := actor(c)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status wajib diisi"})
		return
	}

	order, err := h.Svc.UpdateStatus(orderID, req.Status, userID, role)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, orderView(order))
}

// Remove handles DELETE /api/admin/orders/:id.
func (h *OrderHandler) Remove(c *gin.Context) {
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}
	if err := h.Svc.Remove(orderID); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pesanan dihapus"})
}

// SchedulePickup handles POST /api/orders/:id/pickup.
func (h *OrderHandler) SchedulePickup(c *gin.Context) {
	userID, role, ok := actor(c)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}

	var req struct {
		Date string `json:"pickup_date"`
		Time string `json:"pickup_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Date == "" || req.Time == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pickup_date dan pickup_time wajib diisi"})
		return
	}

	order, err := h.Svc.SchedulePickup(orders.ScheduleInput{
		OrderID:   orderID,
		ActorID:   userID,
		ActorRole: role,
		Date:      req.Date,
		Time:      req.Time,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, orderView(order))
}

// MarkPickupReady handles POST /api/admin/orders/:id/pickup/ready.
func (h *OrderHandler) MarkPickupReady(c *gin.Context) {
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}
	order, err := h.Svc.MarkPickupReady(orderID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if h.Users != nil {
		go utils.NotifyPickupReady(h.Users, order)
	}
	c.JSON(http.StatusOK, orderView(order))
}

// CompletePickup handles POST /api/admin/orders/:id/pickup/complete.
func (h *OrderHandler) CompletePickup(c *gin.Context) {
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}
	order, err := h.Svc.CompletePickup(orderID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, orderView(order))
}
