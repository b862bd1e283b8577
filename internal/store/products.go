package store

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"kirana_back_end/internal/database"
	"kirana_back_end/internal/models"

	"github.com/gocql/gocql"
)

type ProductStore struct{}

func NewProductStore() *ProductStore { return &ProductStore{} }

const stockCASAttempts = 5

func (s *ProductStore) GetByID(id gocql.UUID) (*models.Product, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	var p models.Product
	var availability, imagesJSON string
	err = session.Query(`SELECT product_id, name, description, price, stock, sold, availability, images,
		created_at, updated_at FROM products WHERE product_id = ?`, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Sold, &availability, &imagesJSON,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Availability = models.Availability(availability)

	// The images column carries the historical JSON blob shapes; normalize
	// into the canonical asset list here, at the boundary.
	if imagesJSON != "" {
		if err := json.Unmarshal([]byte(imagesJSON), &p.Images); err != nil {
			log.Printf("⚠️ product %s has an unreadable images blob: %v", id, err)
			p.Images = models.AssetList{}
		}
	}
	return &p, nil
}

// AdjustStock applies a stock delta (and the opposite sold delta) through a
// read-then-CAS loop. delta is negative for a sale, positive for a restore.
// Stock never goes below zero.
func (s *ProductStore) AdjustStock(id gocql.UUID, delta int) error {
	session, err := database.GetProductsSession()
	if err != nil {
		return err
	}

	for attempt := 0; attempt < stockCASAttempts; attempt++ {
		var stock, sold int
		if err := session.Query(`SELECT stock, sold FROM products WHERE product_id = ?`, id).
			Scan(&stock, &sold); err != nil {
			if err == gocql.ErrNotFound {
				return ErrNotFound
			}
			return err
		}

		newStock := stock + delta
		if newStock < 0 {
			newStock = 0
		}
		newSold := sold - delta
		if newSold < 0 {
			newSold = 0
		}

		var prev int
		applied, err := session.Query(`UPDATE products SET stock = ?, sold = ?, updated_at = ?
			WHERE product_id = ? IF stock = ?`,
			newStock, newSold, time.Now().UTC(), id, stock,
		).ScanCAS(&prev)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
		// Someone else moved the stock between the read and the CAS; retry.
	}
	return fmt.Errorf("stock update for product %s kept conflicting", id)
}

// DecrementForItems takes inventory for a paid order.
func (s *ProductStore) DecrementForItems(items []models.OrderItem) error {
	for _, it := range items {
		if err := s.AdjustStock(it.ProductID, -it.Quantity); err != nil {
			return fmt.Errorf("decrement stock for %s: %w", it.ProductID, err)
		}
	}
	return nil
}

// RestoreForItems returns inventory after a cancellation.
func (s *ProductStore) RestoreForItems(items []models.OrderItem) error {
	for _, it := range items {
		if err := s.AdjustStock(it.ProductID, it.Quantity); err != nil {
			return fmt.Errorf("restore stock for %s: %w", it.ProductID, err)
		}
	}
	return nil
}
