// Package store holds the ScyllaDB and Redis repositories. Status and stock
// mutations go through lightweight transactions so concurrent writers (the
// webhook, the expiry sweep, detail-fetch reconciliation) cannot race each
// other into double side effects.
package store

import (
	"errors"
	"fmt"
	"time"

	"kirana_back_end/internal/database"
	"kirana_back_end/internal/models"

	"github.com/gocql/gocql"
)

var ErrNotFound = errors.New("not found")

type OrderStore struct{}

func NewOrderStore() *OrderStore { return &OrderStore{} }

const orderColumns = `order_id, user_id, status, total_amount, discount_code, discount_amount,
	payment_method, payment_method_code, tripay_reference, paid_at, payment_expires_at,
	pickup_at, min_pickup_at, pickup_start, pickup_end, pickup_status,
	scheduled_at, ready_at, picked_up_at, reminder_day_sent, reminder_hour_sent,
	created_at, updated_at`

func scanOrder(scanner gocql.Scanner) (*models.Order, error) {
	var o models.Order
	var status, pickupStatus string
	err := scanner.Scan(
		&o.ID, &o.UserID, &status, &o.TotalAmount, &o.DiscountCode, &o.DiscountAmount,
		&o.PaymentMethod, &o.PaymentMethodCode, &o.TripayReference, &o.PaidAt, &o.PaymentExpiresAt,
		&o.PickupAt, &o.MinPickupAt, &o.PickupStart, &o.PickupEnd, &pickupStatus,
		&o.ScheduledAt, &o.ReadyAt, &o.PickedUpAt, &o.ReminderDaySent, &o.ReminderHourSent,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	o.PickupStatus = models.PickupStatus(pickupStatus)
	if o.PickupStatus == "" {
		o.PickupStatus = models.PickupUnscheduled
	}
	return &o, nil
}

// Insert persists the order row and its item snapshots.
func (s *OrderStore) Insert(o *models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	if err := session.Query(`INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, string(o.Status), o.TotalAmount, o.DiscountCode, o.DiscountAmount,
		o.PaymentMethod, o.PaymentMethodCode, o.TripayReference, o.PaidAt, o.PaymentExpiresAt,
		o.PickupAt, o.MinPickupAt, o.PickupStart, o.PickupEnd, string(o.PickupStatus),
		o.ScheduledAt, o.ReadyAt, o.PickedUpAt, o.ReminderDaySent, o.ReminderHourSent,
		o.CreatedAt, o.UpdatedAt,
	).Exec(); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		if err := session.Query(`INSERT INTO order_items (order_id, product_id, name, price, quantity)
			VALUES (?, ?, ?, ?, ?)`,
			o.ID, it.ProductID, it.Name, it.Price, it.Quantity,
		).Exec(); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// GetByID loads an order with its items.
func (s *OrderStore) GetByID(id gocql.UUID) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, id).Iter()
	scanner := iter.Scanner()
	if !scanner.Next() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	o, err := scanOrder(scanner)
	if err != nil {
		return nil, err
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	items, err := s.loadItems(session, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (s *OrderStore) loadItems(session *gocql.Session, orderID gocql.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	iter := session.Query(`SELECT order_id, product_id, name, price, quantity
		FROM order_items WHERE order_id = ?`, orderID).Iter()
	var it models.OrderItem
	for iter.Scan(&it.OrderID, &it.ProductID, &it.Name, &it.Price, &it.Quantity) {
		items = append(items, it)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *OrderStore) list(query string, values ...interface{}) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	scanner := session.Query(query, values...).Iter().Scanner()
	for scanner.Next() {
		o, err := scanOrder(scanner)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := s.loadItems(session, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (s *OrderStore) ListByUser(userID gocql.UUID) ([]models.Order, error) {
	return s.list(`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ALLOW FILTERING`, userID)
}

func (s *OrderStore) ListByStatus(status models.OrderStatus) ([]models.Order, error) {
	return s.list(`SELECT `+orderColumns+` FROM orders WHERE status = ? ALLOW FILTERING`, string(status))
}

func (s *OrderStore) ListAll() ([]models.Order, error) {
	return s.list(`SELECT ` + orderColumns + ` FROM orders`)
}

// FindByReference resolves an order from the gateway transaction handle.
func (s *OrderStore) FindByReference(reference string) (*models.Order, error) {
	orders, err := s.list(`SELECT `+orderColumns+` FROM orders WHERE tripay_reference = ? ALLOW FILTERING`, reference)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

// ListScheduledPickups feeds the reminder scheduler.
func (s *OrderStore) ListScheduledPickups() ([]models.Order, error) {
	return s.list(`SELECT `+orderColumns+` FROM orders WHERE pickup_status = ? ALLOW FILTERING`,
		string(models.PickupScheduled))
}

// CompareAndSetStatus transitions status only when the row still carries
// expected, so concurrent writers serialize on the LWT. Returns whether the
// update applied.
func (s *OrderStore) CompareAndSetStatus(id gocql.UUID, expected, next models.OrderStatus) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	var prev string
	applied, err := session.Query(`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ? IF status = ?`,
		string(next), time.Now().UTC(), id, string(expected),
	).ScanCAS(&prev)
	if err != nil {
		return false, err
	}
	return applied, nil
}

// MarkPaid sets the payment fields exactly once; a second confirmation for
// the same order does not apply.
func (s *OrderStore) MarkPaid(id gocql.UUID, paidAt time.Time, reference, method, methodCode string) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	var prev *time.Time
	applied, err := session.Query(`UPDATE orders SET paid_at = ?, tripay_reference = ?,
		payment_method = ?, payment_method_code = ?, updated_at = ?
		WHERE order_id = ? IF paid_at = null`,
		paidAt, reference, method, methodCode, time.Now().UTC(), id,
	).ScanCAS(&prev)
	if err != nil {
		return false, err
	}
	return applied, nil
}

// SetTripayReference stores the gateway transaction handle after creation.
func (s *OrderStore) SetTripayReference(id gocql.UUID, reference, method, methodCode string, expiresAt *time.Time) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`UPDATE orders SET tripay_reference = ?, payment_method = ?,
		payment_method_code = ?, payment_expires_at = ?, updated_at = ? WHERE order_id = ?`,
		reference, method, methodCode, expiresAt, time.Now().UTC(), id,
	).Exec()
}

// SetPickupSchedule books a slot.
func (s *OrderStore) SetPickupSchedule(id gocql.UUID, start, end time.Time, scheduledAt time.Time) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`UPDATE orders SET pickup_start = ?, pickup_end = ?, pickup_at = ?,
		pickup_status = ?, scheduled_at = ?, reminder_day_sent = false, reminder_hour_sent = false,
		updated_at = ? WHERE order_id = ?`,
		start, end, start, string(models.PickupScheduled), scheduledAt, time.Now().UTC(), id,
	).Exec()
}

func (s *OrderStore) SetPickupStatus(id gocql.UUID, status models.PickupStatus, readyAt, pickedUpAt *time.Time) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	q := `UPDATE orders SET pickup_status = ?, updated_at = ?`
	args := []interface{}{string(status), time.Now().UTC()}
	if readyAt != nil {
		q += `, ready_at = ?`
		args = append(args, readyAt)
	}
	if pickedUpAt != nil {
		q += `, picked_up_at = ?`
		args = append(args, pickedUpAt)
	}
	q += ` WHERE order_id = ?`
	args = append(args, id)
	return session.Query(q, args...).Exec()
}

func (s *OrderStore) SetReminderFlags(id gocql.UUID, daySent, hourSent bool) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`UPDATE orders SET reminder_day_sent = ?, reminder_hour_sent = ?, updated_at = ?
		WHERE order_id = ?`, daySent, hourSent, time.Now().UTC(), id).Exec()
}

// Delete removes the items first, then the order row.
func (s *OrderStore) Delete(id gocql.UUID) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	if err := session.Query(`DELETE FROM order_items WHERE order_id = ?`, id).Exec(); err != nil {
		return err
	}
	return session.Query(`DELETE FROM orders WHERE order_id = ?`, id).Exec()
}
