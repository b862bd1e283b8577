package handlers

import (
	"net/http"

	"kirana_back_end/internal/httperr"
	"kirana_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

type ProductHandler struct {
	Products *store.ProductStore
}

func NewProductHandler(products *store.ProductStore) *ProductHandler {
	return &ProductHandler{Products: products}
}

// Get handles GET /api/products/:id, public.
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produk tidak valid"})
		return
	}

	product, err := h.Products.GetByID(id)
	if err == store.ErrNotFound {
		httperr.Respond(c, httperr.NotFound("Produk tidak ditemukan"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}
