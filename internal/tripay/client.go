package tripay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"kirana_back_end/internal/config"
	"kirana_back_end/internal/httperr"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrTransactionNotFound marks a missing remote transaction, the trigger for
// the self-heal path.
var ErrTransactionNotFound = errors.New("tripay: transaction not found")

type Client struct {
	HTTP         *http.Client
	BaseURL      string
	APIKey       string
	PrivateKey   string
	MerchantCode string
}

func NewClient(cfg config.TripayConfig) *Client {
	return &Client{
		HTTP:         &http.Client{Timeout: 15 * time.Second},
		BaseURL:      resolveBaseURL(cfg.Mode),
		APIKey:       cfg.APIKey,
		PrivateKey:   cfg.PrivateKey,
		MerchantCode: cfg.MerchantCode,
	}
}

// resolveBaseURL follows the gateway docs: sandbox and production live on
// the same domain under different path segments. TRIPAY_BASE_URL overrides
// both for testing.
func resolveBaseURL(mode string) string {
	if override := strings.TrimSpace(os.Getenv("TRIPAY_BASE_URL")); override != "" {
		return strings.TrimRight(override, "/")
	}
	seg := "api"
	if strings.ToLower(mode) != "production" {
		seg = "api-sandbox"
	}
	return "https://tripay.co.id/" + seg
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

type TransactionItem struct {
	SKU      string `json:"sku,omitempty"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type CreateParams struct {
	MerchantRef   string
	Amount        int64
	Method        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Items         []TransactionItem
	ExpiredTime   int64 // epoch seconds, optional
}

// Transaction is the gateway's view of a created transaction.
type Transaction struct {
	Reference   string `json:"reference"`
	MerchantRef string `json:"merchant_ref"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	PayCode     string `json:"pay_code"`
	QRString    string `json:"qr_string"`
	QRURL       string `json:"qr_url"`
	CheckoutURL string `json:"checkout_url"`
	ExpiredTime int64  `json:"expired_time"`
}

type apiEnvelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CreateClosedTransaction registers a closed (fixed amount) transaction. The
// gateway rejects requests whose line items do not sum to the amount, so
// when the two disagree by more than one unit (a discounted total, rounding)
// the items collapse into one synthetic payment line instead of failing.
func (c *Client) CreateClosedTransaction(ctx context.Context, p CreateParams) (*Transaction, error) {
	if c.MerchantCode == "" || c.PrivateKey == "" {
		return nil, fmt.Errorf("tripay credentials not configured")
	}

	items := p.Items
	var itemsTotal int64
	for _, it := range items {
		itemsTotal += it.Price * int64(it.Quantity)
	}
	diff := itemsTotal - p.Amount
	if diff < 0 {
		diff = -diff
	}
	if len(items) == 0 || diff > 1 {
		items = []TransactionItem{{
			SKU:      "PAYMENT",
			Name:     "Pembayaran Order #" + p.MerchantRef,
			Price:    p.Amount,
			Quantity: 1,
		}}
	}

	payload := map[string]interface{}{
		"method":         p.Method,
		"merchant_ref":   p.MerchantRef,
		"amount":         p.Amount,
		"customer_name":  p.CustomerName,
		"customer_email": p.CustomerEmail,
		"order_items":    items,
		"callback_url":   config.Getenv("TRIPAY_CALLBACK_URL", os.Getenv("CALLBACK_URL")),
		"return_url":     config.Getenv("TRIPAY_RETURN_URL", os.Getenv("FRONTEND_URL")),
		"signature":      BuildSignature(c.PrivateKey, c.MerchantCode, p.MerchantRef, p.Amount),
	}
	if p.CustomerPhone != "" {
		payload["customer_phone"] = p.CustomerPhone
	}
	if p.ExpiredTime > 0 {
		payload["expired_time"] = p.ExpiredTime
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transaction/create", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("decode create response: %w", err)
	}
	return &tx, nil
}

// Channel is one payment method offered by the gateway.
type Channel struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Group       string `json:"group"`
	FeeMerchant int64  `json:"fee_merchant"`
	FeeCustomer int64  `json:"fee_customer"`
	TotalFee    int64  `json:"total_fee"`
	Active      bool   `json:"active"`
}

// FetchChannels lists the gateway's payment channels.
func (c *Client) FetchChannels(ctx context.Context) ([]Channel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/merchant/payment-channel", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var channels []Channel
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	return channels, nil
}

// Detail is the normalized transaction detail served to the payment page.
type Detail struct {
	Status            string        `json:"status"`
	MerchantRef       string        `json:"merchant_ref"`
	Reference         string        `json:"reference,omitempty"`
	Amount            int64         `json:"amount"`
	Method            string        `json:"method,omitempty"`
	Channel           string        `json:"channel,omitempty"`
	PaymentMethod     string        `json:"payment_method,omitempty"`
	PaymentMethodCode string        `json:"payment_method_code,omitempty"`
	PaymentName       string        `json:"payment_name,omitempty"`
	PayCode           string        `json:"pay_code,omitempty"`
	VANumber          string        `json:"va_number,omitempty"`
	QRImage           string        `json:"qr_image,omitempty"`
	QRURL             string        `json:"qr_url,omitempty"`
	QRString          string        `json:"qr_string,omitempty"`
	ExpiredTime       int64         `json:"expired_time,omitempty"`
	ExpiredAt         string        `json:"expired_at,omitempty"`
	Instructions      []Instruction `json:"instructions"`
	PaymentURL        string        `json:"payment_url,omitempty"`
	IsLocalFallback   bool          `json:"is_local_fallback,omitempty"`
}

type Instruction struct {
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

type rawDetail struct {
	Status        string          `json:"status"`
	StatusMessage string          `json:"status_message"`
	MerchantRef   string          `json:"merchant_ref"`
	Reference     string          `json:"reference"`
	Amount        int64           `json:"amount"`
	Method        string          `json:"method"`
	PaymentMethod string          `json:"payment_method"`
	Channel       string          `json:"channel"`
	PaymentName   string          `json:"payment_name"`
	PayCode       string          `json:"pay_code"`
	VANumber      string          `json:"va_number"`
	AccountNumber string          `json:"account_number"`
	QRImage       string          `json:"qr_image"`
	QRURL         string          `json:"qr_url"`
	QRString      string          `json:"qr_string"`
	ExpiredTime   int64           `json:"expired_time"`
	ExpiredAt     string          `json:"expired_at"`
	Instructions  []Instruction   `json:"instructions"`
	PaymentURL    string          `json:"payment_url"`
	CheckoutURL   string          `json:"checkout_url"`
	PayURL        json.RawMessage `json:"pay_url"`
}

var notFoundRe = regexp.MustCompile(`(?i)not found|tidak ditemukan|data tidak ada`)

// FetchDetail fetches and normalizes a transaction detail. The gateway's
// detail endpoint prefers its own reference over merchant_ref.
func (c *Client) FetchDetail(ctx context.Context, reference, merchantRef string) (*Detail, error) {
	q := url.Values{}
	if reference != "" {
		q.Set("reference", reference)
	} else {
		q.Set("merchant_ref", merchantRef)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/transaction/detail?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var d rawDetail
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode detail: %w", err)
	}
	return normalizeDetail(&d, reference, merchantRef), nil
}

func normalizeDetail(d *rawDetail, reference, merchantRef string) *Detail {
	status := d.Status
	if status == "" {
		status = d.StatusMessage
	}

	method := first(d.Method, d.PaymentMethod, d.Channel)
	payCode := first(d.PayCode, d.VANumber, d.AccountNumber)

	qrImage := first(d.QRImage, d.QRURL)
	if qrImage != "" && !strings.HasPrefix(qrImage, "data:") && !strings.Contains(qrImage, "://") {
		// Some channels return the PNG as bare base64.
		qrImage = "data:image/png;base64," + qrImage
	}
	if qrImage == "" && d.QRString != "" {
		// QRIS sometimes ships only the payload string; render the code
		// locally so the payment page always has an image.
		if png, err := qrcode.Encode(d.QRString, qrcode.Medium, 256); err == nil {
			qrImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
		}
	}

	expiredAt := d.ExpiredAt
	if expiredAt == "" && d.ExpiredTime > 0 {
		expiredAt = time.Unix(d.ExpiredTime, 0).UTC().Format(time.RFC3339)
	}

	out := &Detail{
		Status:        strings.ToUpper(status),
		MerchantRef:   first(d.MerchantRef, merchantRef),
		Reference:     first(d.Reference, reference),
		Amount:        d.Amount,
		Method:        method,
		Channel:       first(d.Channel, d.Method),
		PaymentMethod: method,
		PaymentName:   first(d.PaymentName, d.Channel, d.Method),
		PayCode:       payCode,
		VANumber:      first(d.VANumber, d.PayCode),
		QRImage:       qrImage,
		QRURL:         qrImage,
		QRString:      d.QRString,
		ExpiredTime:   d.ExpiredTime,
		ExpiredAt:     expiredAt,
		Instructions:  d.Instructions,
		PaymentURL:    first(d.PaymentURL, d.CheckoutURL),
	}
	if out.Instructions == nil {
		out.Instructions = []Instruction{}
	}
	return out
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// do executes the request and unwraps the gateway envelope. A missing
// transaction surfaces as ErrTransactionNotFound; other failures map to the
// upstream-unavailable error so callers can fall back.
func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, httperr.Upstream("Gateway pembayaran tidak dapat dihubungi")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, httperr.Upstream("Gagal membaca respons gateway")
	}

	if ct := res.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return nil, httperr.Upstream(fmt.Sprintf("Gateway mengembalikan respons non-JSON (%d)", res.StatusCode))
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, httperr.Upstream("Respons gateway tidak dapat dibaca")
	}
	failed := res.StatusCode >= 400 || (env.Success != nil && !*env.Success)
	if failed {
		if res.StatusCode == http.StatusNotFound ||
			(res.StatusCode == http.StatusBadRequest && notFoundRe.MatchString(env.Message)) {
			return nil, ErrTransactionNotFound
		}
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("Gateway error %d", res.StatusCode)
		}
		return nil, httperr.Upstream(msg)
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return body, nil
}
