package utils

import (
	"fmt"
	"log"

	"kirana_back_end/internal/models"
	"kirana_back_end/internal/store"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// NotifyUser writes one in-app notification. Best effort: a failed write is
// logged and swallowed, notifications never block order processing.
func NotifyUser(users *store.UserStore, userID gocql.UUID, title, body string) {
	err := users.InsertNotification(models.Notification{
		ID:     gocql.UUID(uuid.New()),
		UserID: userID,
		Title:  title,
		Body:   body,
	})
	if err != nil {
		log.Printf("⚠️ notification for user %s: %v", userID, err)
	}
}

// NotifyOrderPaid records the payment confirmation for the customer.
func NotifyOrderPaid(users *store.UserStore, order *models.Order) {
	NotifyUser(users, order.UserID,
		"Pembayaran diterima",
		fmt.Sprintf("Pembayaran pesanan %s sebesar %s sudah kami terima. Pesanan sedang disiapkan.",
			order.Code(), FormatIDR(order.TotalAmount)))
}

// NotifyOrderExpired records the automatic cancellation of an unpaid order.
func NotifyOrderExpired(users *store.UserStore, order *models.Order) {
	NotifyUser(users, order.UserID,
		"Pesanan dibatalkan",
		fmt.Sprintf("Pesanan %s dibatalkan karena pembayaran tidak diterima dalam batas waktu.", order.Code()))
}

// NotifyOrderRevived records a late payment landing on a cancelled order.
func NotifyOrderRevived(users *store.UserStore, order *models.Order) {
	NotifyUser(users, order.UserID,
		"Pesanan diaktifkan kembali",
		fmt.Sprintf("Pesanan %s aktif kembali, menunggu penyelesaian pembayaran.", order.Code()))
}

// NotifyPickupReady tells the customer the order is waiting at the counter.
func NotifyPickupReady(users *store.UserStore, order *models.Order) {
	NotifyUser(users, order.UserID,
		"Pesanan siap diambil",
		fmt.Sprintf("Pesanan %s sudah siap diambil di toko.", order.Code()))
}
