package utils

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"kirana_back_end/internal/config"
	"kirana_back_end/internal/models"
	"kirana_back_end/internal/pickup"

	"github.com/wneessen/go-mail"
)

// SendEmail delivers one HTML message through the configured SMTP relay.
func SendEmail(to, subject, htmlBody string, attachment []byte, attachmentName string) error {
	msg := mail.NewMsg()

	from := config.Getenv("SMTP_FROM", "noreply@kiranaflorist.id")
	if err := msg.From(from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	if attachment != nil {
		msg.AttachReader(attachmentName, bytes.NewReader(attachment))
	}

	port, _ := strconv.Atoi(config.Getenv("SMTP_PORT", "587"))
	client, err := mail.NewClient(config.Getenv("SMTP_HOST", "smtp.gmail.com"),
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Sending email to", to)
	return client.DialAndSend(msg)
}

// FormatIDR renders an amount as "Rp150.000".
func FormatIDR(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteRune('.')
		}
		b.WriteRune(r)
	}
	out := "Rp" + b.String()
	if neg {
		return "-" + out
	}
	return out
}

// SendInvoiceEmail mails the payment confirmation with the line items.
// Controlled by EMAIL_INVOICE_ENABLED.
func SendInvoiceEmail(order *models.Order, userEmail string) error {
	if !config.InvoiceEmailEnabled() {
		return nil
	}
	subject := fmt.Sprintf("✅ Pembayaran diterima - %s", order.Code())
	return SendEmail(userEmail, subject, invoiceHTML(order), nil, "")
}

func invoiceHTML(order *models.Order) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 8px; border: 1px solid #ddd; text-align: center;">%d</td>
				<td style="padding: 8px; border: 1px solid #ddd; text-align: right;">%s</td>
				<td style="padding: 8px; border: 1px solid #ddd; text-align: right;">%s</td>
			</tr>`, item.Name, item.Quantity, FormatIDR(item.Price), FormatIDR(item.Price*int64(item.Quantity)))
	}

	discountRow := ""
	if order.DiscountAmount > 0 {
		discountRow = fmt.Sprintf(`
				<tr>
					<td colspan="3" style="padding: 8px; text-align: right;">Diskon (%s):</td>
					<td style="padding: 8px; text-align: right;">-%s</td>
				</tr>`, order.DiscountCode, FormatIDR(order.DiscountAmount))
	}

	pickupRow := ""
	if order.PickupStart != nil {
		pickupRow = fmt.Sprintf(`<p>Jadwal pengambilan: <strong>%s pukul %s WIB</strong></p>`,
			pickup.LocalDate(*order.PickupStart), pickup.LocalHHMM(*order.PickupStart))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="id">
<head><meta charset="UTF-8"><title>Pembayaran Diterima</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #2e7d32;">Pembayaran Anda sudah kami terima</h2>
		<p>Terima kasih! Pesanan <strong>%s</strong> sedang kami siapkan.</p>
		%s
		<h3>Rincian pesanan</h3>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Produk</th>
					<th style="padding: 8px; border: 1px solid #ddd;">Jumlah</th>
					<th style="padding: 8px; text-align: right; border: 1px solid #ddd;">Harga</th>
					<th style="padding: 8px; text-align: right; border: 1px solid #ddd;">Subtotal</th>
				</tr>
			</thead>
			<tbody>%s</tbody>
			<tfoot>
				%s
				<tr>
					<td colspan="3" style="padding: 8px; text-align: right; font-weight: bold;">Total:</td>
					<td style="padding: 8px; text-align: right; font-weight: bold;">%s</td>
				</tr>
			</tfoot>
		</table>
		<p style="margin-top: 30px; color: #555;">
			Salam hangat,<br>
			<strong>Kirana Florist</strong>
		</p>
	</div>
</body>
</html>`, order.Code(), pickupRow, itemsHTML, discountRow, FormatIDR(order.TotalAmount))
}

// SendPickupReminderEmail mails either the day-before or the hour-before
// reminder for a scheduled pickup. kind is "day" or "hour".
func SendPickupReminderEmail(order *models.Order, userEmail, kind string) error {
	if order.PickupStart == nil {
		return nil
	}
	date := pickup.LocalDate(*order.PickupStart)
	clock := pickup.LocalHHMM(*order.PickupStart)

	var subject, lead string
	if kind == "hour" {
		subject = fmt.Sprintf("⏰ Pengambilan sebentar lagi - %s", order.Code())
		lead = "Slot pengambilan pesanan Anda dimulai kurang dari satu jam lagi."
	} else {
		subject = fmt.Sprintf("🗓️ Pengambilan besok - %s", order.Code())
		lead = "Jangan lupa, pesanan Anda siap diambil besok."
	}

	html := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="id">
<head><meta charset="UTF-8"><title>Pengingat Pengambilan</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Pengingat pengambilan pesanan</h2>
		<p>%s</p>
		<div style="background-color: #f0f7f0; padding: 16px; border-radius: 8px; margin: 20px 0;">
			<p style="margin: 4px 0;"><strong>Pesanan:</strong> %s</p>
			<p style="margin: 4px 0;"><strong>Tanggal:</strong> %s</p>
			<p style="margin: 4px 0;"><strong>Waktu:</strong> %s WIB</p>
		</div>
		<p style="color: #555;">Tunjukkan nomor pesanan Anda di kasir saat pengambilan.</p>
		<p style="margin-top: 30px; color: #555;">
			Salam hangat,<br>
			<strong>Kirana Florist</strong>
		</p>
	</div>
</body>
</html>`, lead, order.Code(), date, clock)

	return SendEmail(userEmail, subject, html, nil, "")
}

// SendAdminPaidOrderEmail tells the shop a new order is paid and needs
// preparing. Silently skipped when ADMIN_EMAIL is unset.
func SendAdminPaidOrderEmail(order *models.Order) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("💐 Pesanan baru dibayar - %s", order.Code())
	paidAt := time.Now()
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}
	html := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="id">
<head><meta charset="UTF-8"><title>Pesanan Dibayar</title></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
	<h2>Pesanan %s sudah dibayar</h2>
	<p>Total: <strong>%s</strong></p>
	<p>Dibayar: %s WIB</p>
	<p>Jumlah item: %d</p>
	<p>Segera siapkan pesanan ini.</p>
</body>
</html>`, order.Code(), FormatIDR(order.TotalAmount),
		paidAt.In(pickup.Jakarta).Format("2006-01-02 15:04"), len(order.Items))

	return SendEmail(adminEmail, subject, html, nil, "")
}
