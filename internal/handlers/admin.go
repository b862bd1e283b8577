package handlers

import (
	"net/http"

	"kirana_back_end/internal/httperr"
	"kirana_back_end/internal/models"
	"kirana_back_end/internal/store"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the back-office order views.
type AdminHandler struct {
	Orders *store.OrderStore
}

func NewAdminHandler(orders *store.OrderStore) *AdminHandler {
	return &AdminHandler{Orders: orders}
}

// ListOrders handles GET /api/admin/orders?status=PROCESSING.
func (h *AdminHandler) ListOrders(c *gin.Context) {
	var (
		list []models.Order
		err  error
	)
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseOrderStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Status tidak dikenal: " + raw})
			return
		}
		list, err = h.Orders.ListByStatus(status)
	} else {
		list, err = h.Orders.ListAll()
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	views := make([]gin.H, 0, len(list))
	for i := range list {
		views = append(views, gin.H{"order": &list[i], "code": list[i].Code()})
	}
	c.JSON(http.StatusOK, gin.H{"orders": views, "count": len(views)})
}

// Stats handles GET /api/admin/orders/stats: order counts per status plus
// paid revenue.
func (h *AdminHandler) Stats(c *gin.Context) {
	list, err := h.Orders.ListAll()
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	byStatus := map[string]int{}
	byPickup := map[string]int{}
	var revenue int64
	for i := range list {
		o := &list[i]
		byStatus[string(o.Status)]++
		byPickup[string(o.PickupStatus)]++
		if o.PaidAt != nil {
			revenue += o.TotalAmount
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     len(list),
		"by_status": byStatus,
		"by_pickup": byPickup,
		"revenue":   revenue,
		"currency":  "IDR",
	})
}
