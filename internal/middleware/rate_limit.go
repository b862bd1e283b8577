package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kirana_back_end/internal/database"

	"github.com/gin-gonic/gin"
)

const (
	APIMaxRequests      = 100 // per IP per minute
	CheckoutMaxRequests = 10  // per user per minute
	CartMaxRequests     = 20  // per user per minute

	apiWindow = time.Minute
)

// APIRateLimit caps requests per IP over a sliding minute. Redis being down
// never blocks traffic; the counter read just comes back zero.
func APIRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		key := "api_requests:" + c.ClientIP()

		requests, _ := database.Redis.Get(ctx, key).Int()
		if requests >= APIMaxRequests {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Terlalu banyak permintaan. Coba lagi dalam 1 menit",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		pipe := database.Redis.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, apiWindow)
		pipe.Exec(ctx)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", APIMaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", APIMaxRequests-requests-1))

		c.Next()
	}
}

// CheckoutRateLimit slows down repeated order creation by the same user,
// mostly to keep a stuck client from piling up PENDING orders.
func CheckoutRateLimit() gin.HandlerFunc {
	return userRateLimit("checkout_requests:", CheckoutMaxRequests,
		"Terlalu banyak percobaan checkout. Tunggu sebentar")
}

// CartRateLimit caps cart mutations per user.
func CartRateLimit() gin.HandlerFunc {
	return userRateLimit("cart_requests:", CartMaxRequests,
		"Terlalu banyak perubahan keranjang. Pelan-pelan")
}

func userRateLimit(prefix string, max int, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		ctx := context.Background()
		key := prefix + userID

		requests, _ := database.Redis.Get(ctx, key).Int()
		if requests >= max {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       message,
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		pipe := database.Redis.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, apiWindow)
		pipe.Exec(ctx)

		c.Next()
	}
}
