package models

import (
	"time"

	"github.com/gocql/gocql"
)

type User struct {
	ID    gocql.UUID `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Phone string     `json:"phone,omitempty"`
	Role  string     `json:"role"`
}

type CartItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// Notification is an in-app message row, written best-effort on order events.
type Notification struct {
	ID        gocql.UUID `json:"id"`
	UserID    gocql.UUID `json:"userId"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}
