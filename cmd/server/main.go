package main

import (
	"context"
	"log"
	"os"

	"kirana_back_end/internal/cache"
	"kirana_back_end/internal/config"
	"kirana_back_end/internal/database"
	"kirana_back_end/internal/handlers"
	"kirana_back_end/internal/models"
	"kirana_back_end/internal/orders"
	"kirana_back_end/internal/reconcile"
	"kirana_back_end/internal/routes"
	"kirana_back_end/internal/scheduler"
	"kirana_back_end/internal/store"
	"kirana_back_end/internal/tripay"
	"kirana_back_end/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

func main() {
	config.Load()

	tripayCfg := config.Tripay()
	if tripayCfg.APIKey == "" || tripayCfg.PrivateKey == "" {
		log.Println("⚠️ Tripay credentials missing, payment endpoints will fail")
	} else {
		log.Printf("✅ Tripay initialized (%s)", tripayCfg.Mode)
	}

	database.ConnectDatabases()
	warmupRedisCache()

	// Stores
	orderStore := store.NewOrderStore()
	productStore := store.NewProductStore()
	discountStore := store.NewDiscountStore()
	userStore := store.NewUserStore()
	cartStore := store.NewCartStore()

	// Services
	orderSvc := orders.NewService(orderStore, productStore, discountStore)

	tripayClient := tripay.NewClient(tripayCfg)
	channelCache := cache.New(database.RedisClient, "tripay")
	channels := tripay.NewChannels(tripayClient, channelCache)
	tripaySvc := tripay.NewService(tripayClient, orderStore, userStore)

	reconciler := reconcile.NewReconciler(orderStore, productStore, discountStore, cartClearer{cartStore})
	reconciler.Notify = func(event string, order *models.Order) {
		go notifyOrderEvent(userStore, event, order)
	}
	// Detail reads feed the reconciler so missed webhooks heal on the next
	// payment page visit.
	tripaySvc.Reconcile = reconciler.FromDetail

	// Background loops
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.New(orderSvc, orderStore, userStore).Run(ctx)

	// HTTP
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.Getenv("FRONTEND_URL", "http://localhost:5173")},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	routes.RegisterRoutes(r, routes.Handlers{
		Orders:   handlers.NewOrderHandler(orderSvc, userStore, cartStore),
		Payments: handlers.NewPaymentHandler(tripaySvc, channels, reconciler),
		Cart:     handlers.NewCartHandler(cartStore),
		Products: handlers.NewProductHandler(productStore),
		Admin:    handlers.NewAdminHandler(orderStore),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Kirana Florist API listening on port", port)
	r.Run(":" + port)
}

// cartClearer adapts the string-keyed cart store to the reconciler.
type cartClearer struct {
	cart *store.CartStore
}

func (a cartClearer) Clear(userID gocql.UUID) error {
	return a.cart.Clear(context.Background(), userID.String())
}

// notifyOrderEvent fans one reconciliation event out to email and in-app
// notifications. Everything here is best effort.
func notifyOrderEvent(users *store.UserStore, event string, order *models.Order) {
	switch event {
	case reconcile.EventPaid:
		utils.NotifyOrderPaid(users, order)
		if err := utils.SendAdminPaidOrderEmail(order); err != nil {
			log.Printf("⚠️ admin email for %s: %v", order.ID, err)
		}
		if user, err := users.GetByID(order.UserID); err == nil {
			if err := utils.SendInvoiceEmail(order, user.Email); err != nil {
				log.Printf("⚠️ invoice email for %s: %v", order.ID, err)
			}
		}
	case reconcile.EventExpired:
		utils.NotifyOrderExpired(users, order)
	case reconcile.EventRevived:
		utils.NotifyOrderRevived(users, order)
	}
}

// warmupRedisCache pings Redis once so the first request does not pay the
// connection setup.
func warmupRedisCache() {
	if err := database.RedisClient.Ping(context.Background()).Err(); err == nil {
		log.Println("✅ Redis cache warmed up")
	}
}
