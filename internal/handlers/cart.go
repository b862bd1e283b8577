package handlers

import (
	"net/http"

	"kirana_back_end/internal/models"
	"kirana_back_end/internal/store"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	Cart *store.CartStore
}

func NewCartHandler(cart *store.CartStore) *CartHandler {
	return &CartHandler{Cart: cart}
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(c *gin.Context) {
	userID := c.GetString("user_id")
	items, err := h.Cart.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal memuat keranjang"})
		return
	}

	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total, "count": len(items)})
}

// Put handles PUT /api/cart, replacing the whole cart.
func (h *CartHandler) Put(c *gin.Context) {
	userID := c.GetString("user_id")

	var req struct {
		Items []models.CartItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body permintaan tidak valid"})
		return
	}
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Item keranjang tidak valid"})
			return
		}
	}

	if err := h.Cart.Set(c.Request.Context(), userID, req.Items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal menyimpan keranjang"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": req.Items, "count": len(req.Items)})
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(c *gin.Context) {
	userID := c.GetString("user_id")
	if err := h.Cart.Clear(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal mengosongkan keranjang"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Keranjang dikosongkan"})
}
