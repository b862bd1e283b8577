package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  No .env file found, falling back to system environment variables")
	} else {
		log.Println("✅ .env file loaded")
	}
}

// Getenv returns the value of key or fallback when unset/empty.
func Getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// GetenvInt returns the integer value of key or fallback when unset or unparsable.
func GetenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️  %s=%q is not a number, using %d", key, v, fallback)
		return fallback
	}
	return n
}

// GetenvBool accepts the usual truthy spellings: 1, true, yes, y.
func GetenvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// PickupConfig carries the store's operating window and buffer rules.
// Times are Jakarta-local "HH:mm" strings.
type PickupConfig struct {
	OpenTime             string
	CloseTime            string
	SlotMinutes          int
	SameDayBufferMinutes int
	ReadyBufferMinutes   int
}

func Pickup() PickupConfig {
	return PickupConfig{
		OpenTime:             Getenv("PICKUP_OPEN", "09:00"),
		CloseTime:            Getenv("PICKUP_CLOSE", "20:00"),
		SlotMinutes:          GetenvInt("PICKUP_SLOT_MINUTES", 60),
		SameDayBufferMinutes: GetenvInt("PICKUP_SAME_DAY_BUFFER_MINUTES", 120),
		ReadyBufferMinutes:   GetenvInt("PICKUP_READY_BUFFER_MINUTES", 180),
	}
}

// TripayConfig holds the payment gateway credentials and policy flags.
type TripayConfig struct {
	APIKey         string
	PrivateKey     string
	MerchantCode   string
	Mode           string // "sandbox" or "production"
	AllowedCodes   []string
	CompleteOnPaid bool
	StrictAmount   bool
}

func Tripay() TripayConfig {
	allowed := Getenv("TRIPAY_ALLOWED_CODES", "BNIVA,BRIVA,MANDIRIVA,BCAVA,QRIS")
	codes := []string{}
	for _, c := range strings.Split(allowed, ",") {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			codes = append(codes, c)
		}
	}
	return TripayConfig{
		APIKey:         os.Getenv("TRIPAY_API_KEY"),
		PrivateKey:     os.Getenv("TRIPAY_PRIVATE_KEY"),
		MerchantCode:   os.Getenv("TRIPAY_MERCHANT_CODE"),
		Mode:           Getenv("TRIPAY_MODE", "sandbox"),
		AllowedCodes:   codes,
		CompleteOnPaid: GetenvBool("TRIPAY_COMPLETE_ON_PAID", false),
		StrictAmount:   GetenvBool("TRIPAY_STRICT_AMOUNT", false),
	}
}

// ExpirySkewMillis is the grace added on top of paymentExpiresAt before the
// sweep cancels an unpaid order, absorbing clock drift with the gateway.
func ExpirySkewMillis() int {
	return GetenvInt("EXPIRY_SKEW_MS", 120000)
}

// AllowPendingToCompleted enables the direct PENDING to COMPLETED shortcut
// for walk-in customers who pay at the counter.
func AllowPendingToCompleted() bool {
	return GetenvBool("ORDER_ALLOW_PENDING_TO_COMPLETED", false)
}

// AllowOutOfStock disables the stock sufficiency check at checkout.
func AllowOutOfStock() bool {
	return GetenvBool("ORDER_ALLOW_OUT_OF_STOCK", false)
}

func InvoiceEmailEnabled() bool {
	return GetenvBool("EMAIL_INVOICE_ENABLED", true)
}
