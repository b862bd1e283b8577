package store

import (
	"strings"

	"kirana_back_end/internal/database"
	"kirana_back_end/internal/models"

	"github.com/gocql/gocql"
)

type DiscountStore struct{}

func NewDiscountStore() *DiscountStore { return &DiscountStore{} }

func (s *DiscountStore) GetByCode(code string) (*models.Discount, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var d models.Discount
	var dtype string
	err = session.Query(`SELECT discount_id, code, type, value, is_active, starts_at, ends_at,
		max_usage, usage_count, per_user_limit FROM discounts WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code))).Scan(
		&d.ID, &d.Code, &dtype, &d.Value, &d.IsActive, &d.StartsAt, &d.EndsAt,
		&d.MaxUsage, &d.UsageCount, &d.PerUserLimit,
	)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Type = models.DiscountType(dtype)
	return &d, nil
}

func (s *DiscountStore) CountUsageByUser(discountID, userID gocql.UUID) (int, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return 0, err
	}
	var count int
	err = session.Query(`SELECT COUNT(*) FROM discount_usages WHERE discount_id = ? AND user_id = ?`,
		discountID, userID).Scan(&count)
	return count, err
}

// RecordUsage inserts a redemption row. The (discount, user, order) triple is
// the primary key, so a webhook retry that replays the same redemption comes
// back as applied=false and the caller treats it as a no-op.
func (s *DiscountStore) RecordUsage(u models.DiscountUsage) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	applied, err := session.Query(`INSERT INTO discount_usages (discount_id, user_id, order_id, usage_id, used_at)
		VALUES (?, ?, ?, ?, ?) IF NOT EXISTS`,
		u.DiscountID, u.UserID, u.OrderID, u.ID, u.UsedAt,
	).ScanCAS()
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	// Bump the aggregate counter. Best effort; the usage row is the source
	// of truth for per-user limits.
	for attempt := 0; attempt < stockCASAttempts; attempt++ {
		var count int
		if err := session.Query(`SELECT usage_count FROM discounts WHERE discount_id = ?`, u.DiscountID).
			Scan(&count); err != nil {
			return true, err
		}
		var prev int
		ok, err := session.Query(`UPDATE discounts SET usage_count = ? WHERE discount_id = ? IF usage_count = ?`,
			count+1, u.DiscountID, count).ScanCAS(&prev)
		if err != nil {
			return true, err
		}
		if ok {
			break
		}
	}
	return true, nil
}

// DeleteUsage releases a redemption when its order is removed.
func (s *DiscountStore) DeleteUsage(discountID, userID, orderID gocql.UUID) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`DELETE FROM discount_usages WHERE discount_id = ? AND user_id = ? AND order_id = ?`,
		discountID, userID, orderID).Exec()
}
