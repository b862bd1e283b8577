package tripay

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"kirana_back_end/internal/cache"
	"kirana_back_end/internal/config"
)

const (
	channelsCacheKey = "payment-channels"
	channelsCacheTTL = time.Hour
	channelAttempts  = 3
)

// fallbackChannels keeps checkout alive when the gateway's channel endpoint
// is down. Fees mirror the published sandbox fee table.
var fallbackChannels = []Channel{
	{Code: "MYBVA", Name: "Maybank Virtual Account", Group: "Virtual Account", FeeCustomer: 4250, TotalFee: 4250, Active: true},
	{Code: "PERMATAVA", Name: "Permata Virtual Account", Group: "Virtual Account", FeeCustomer: 4250, TotalFee: 4250, Active: true},
	{Code: "BNIVA", Name: "BNI Virtual Account", Group: "Virtual Account", FeeCustomer: 4250, TotalFee: 4250, Active: true},
	{Code: "BRIVA", Name: "BRI Virtual Account", Group: "Virtual Account", FeeCustomer: 4250, TotalFee: 4250, Active: true},
	{Code: "MANDIRIVA", Name: "Mandiri Virtual Account", Group: "Virtual Account", FeeCustomer: 4250, TotalFee: 4250, Active: true},
	{Code: "BCAVA", Name: "BCA Virtual Account", Group: "Virtual Account", FeeCustomer: 5500, TotalFee: 5500, Active: true},
	{Code: "BSIVA", Name: "BSI Virtual Account", Group: "Virtual Account", FeeCustomer: 4250, TotalFee: 4250, Active: true},
	{Code: "CIMBVA", Name: "CIMB Niaga Virtual Account", Group: "Virtual Account", FeeCustomer: 4250, TotalFee: 4250, Active: true},
	{Code: "DANAMONVA", Name: "Danamon Virtual Account", Group: "Virtual Account", FeeCustomer: 4250, TotalFee: 4250, Active: true},
	{Code: "QRIS", Name: "QRIS", Group: "QRIS", FeeCustomer: 750, TotalFee: 750, Active: true},
	{Code: "OVO", Name: "OVO", Group: "E-Wallet", FeeCustomer: 0, TotalFee: 0, Active: true},
	{Code: "SHOPEEPAY", Name: "ShopeePay", Group: "E-Wallet", FeeCustomer: 0, TotalFee: 0, Active: true},
	{Code: "DANA", Name: "DANA", Group: "E-Wallet", FeeCustomer: 0, TotalFee: 0, Active: true},
	{Code: "ALFAMART", Name: "Alfamart", Group: "Convenience Store", FeeCustomer: 3500, TotalFee: 3500, Active: true},
	{Code: "INDOMARET", Name: "Indomaret", Group: "Convenience Store", FeeCustomer: 3500, TotalFee: 3500, Active: true},
}

// Channels serves the payment method list with a Redis cache in front of the
// gateway and a static fallback behind it.
type Channels struct {
	Client *Client
	Cache  *cache.Cache
}

func NewChannels(client *Client, c *cache.Cache) *Channels {
	return &Channels{Client: client, Cache: c}
}

// List returns the active channels allowed for checkout. The gateway is
// retried a few times; if it never answers, the static list stands in so the
// checkout page still renders.
func (s *Channels) List(ctx context.Context) []Channel {
	if s.Cache != nil {
		if raw, ok := s.Cache.Get(ctx, channelsCacheKey); ok {
			var cached []Channel
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return filterAllowed(cached)
			}
		}
	}

	var channels []Channel
	var err error
	for attempt := 1; attempt <= channelAttempts; attempt++ {
		channels, err = s.Client.FetchChannels(ctx)
		if err == nil {
			break
		}
		log.Printf("⚠️ tripay channels attempt %d/%d: %v", attempt, channelAttempts, err)
		if attempt < channelAttempts {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return filterAllowed(fallbackChannels)
			}
		}
	}
	if err != nil {
		log.Printf("❌ tripay channels unavailable, serving fallback list")
		return filterAllowed(fallbackChannels)
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(channels); err == nil {
			if err := s.Cache.Set(ctx, channelsCacheKey, string(raw), channelsCacheTTL, "tripay"); err != nil {
				log.Printf("⚠️ cache payment channels: %v", err)
			}
		}
	}
	return filterAllowed(channels)
}

func filterAllowed(channels []Channel) []Channel {
	allowed := map[string]bool{}
	for _, code := range config.Tripay().AllowedCodes {
		allowed[code] = true
	}

	out := []Channel{}
	for _, ch := range channels {
		if !ch.Active {
			continue
		}
		if len(allowed) > 0 && !allowed[strings.ToUpper(ch.Code)] {
			continue
		}
		out = append(out, ch)
	}
	return out
}
