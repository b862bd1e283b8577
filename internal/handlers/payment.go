package handlers

import (
	"net/http"

	"kirana_back_end/internal/httperr"
	"kirana_back_end/internal/reconcile"
	"kirana_back_end/internal/tripay"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	Tripay     *tripay.Service
	Channels   *tripay.Channels
	Reconciler *reconcile.Reconciler
}

func NewPaymentHandler(svc *tripay.Service, channels *tripay.Channels, rec *reconcile.Reconciler) *PaymentHandler {
	return &PaymentHandler{Tripay: svc, Channels: channels, Reconciler: rec}
}

// ListChannels handles GET /api/payments/channels.
func (h *PaymentHandler) ListChannels(c *gin.Context) {
	channels := h.Channels.List(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// Pay handles POST /api/orders/:id/pay.
func (h *PaymentHandler) Pay(c *gin.Context) {
	userID, role, ok := actor(c)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}

	var req struct {
		Method string `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body permintaan tidak valid"})
		return
	}

	detail, err := h.Tripay.Pay(c.Request.Context(), orderID, userID, role == "admin", req.Method)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": detail})
}

// Detail handles GET /api/orders/:id/payment.
func (h *PaymentHandler) Detail(c *gin.Context) {
	userID, role, ok := actor(c)
	if !ok {
		return
	}
	orderID, ok := pathOrderID(c)
	if !ok {
		return
	}

	detail, err := h.Tripay.GetDetail(c.Request.Context(), orderID, userID, role == "admin")
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": detail})
}

// Callback handles POST /api/payments/callback, the gateway webhook. The
// body is read raw because the signature covers the exact bytes on the wire.
func (h *PaymentHandler) Callback(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Body tidak terbaca"})
		return
	}

	result, err := h.Reconciler.ProcessCallback(
		rawBody,
		c.GetHeader("X-Callback-Signature"),
		c.GetHeader("X-Callback-Event"),
	)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
