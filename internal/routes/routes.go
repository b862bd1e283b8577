package routes

import (
	"kirana_back_end/internal/handlers"
	"kirana_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything RegisterRoutes wires up.
type Handlers struct {
	Orders   *handlers.OrderHandler
	Payments *handlers.PaymentHandler
	Cart     *handlers.CartHandler
	Products *handlers.ProductHandler
	Admin    *handlers.AdminHandler
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	api := r.Group("/api")
	api.Use(middleware.APIRateLimit())

	// Public
	api.GET("/products/:id", h.Products.Get)
	api.GET("/payments/channels", h.Payments.ListChannels)
	// The gateway webhook authenticates with its signature, not a JWT.
	api.POST("/payments/callback", h.Payments.Callback)

	// Authenticated
	auth := api.Group("")
	auth.Use(middleware.AuthRequired())
	{
		auth.POST("/orders", middleware.CheckoutRateLimit(), h.Orders.Create)
		auth.GET("/orders", h.Orders.List)
		auth.GET("/orders/:id", h.Orders.Get)
		auth.PATCH("/orders/:id/status", h.Orders.UpdateStatus)
		auth.POST("/orders/:id/pickup", h.Orders.SchedulePickup)
		auth.POST("/orders/:id/pay", h.Payments.Pay)
		auth.GET("/orders/:id/payment", h.Payments.Detail)

		auth.GET("/cart", h.Cart.Get)
		auth.PUT("/cart", middleware.CartRateLimit(), h.Cart.Put)
		auth.DELETE("/cart", h.Cart.Clear)
	}

	// Admin
	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.RequireAdmin)
	{
		admin.GET("/orders", h.Admin.ListOrders)
		admin.GET("/orders/stats", h.Admin.Stats)
		admin.DELETE("/orders/:id", h.Orders.Remove)
		admin.POST("/orders/:id/pickup/ready", h.Orders.MarkPickupReady)
		admin.POST("/orders/:id/pickup/complete", h.Orders.CompletePickup)
	}
}
