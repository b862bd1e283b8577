package store

import (
	"time"

	"kirana_back_end/internal/database"
	"kirana_back_end/internal/models"

	"github.com/gocql/gocql"
)

type UserStore struct{}

func NewUserStore() *UserStore { return &UserStore{} }

func (s *UserStore) GetByID(id gocql.UUID) (*models.User, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}

	var u models.User
	err = session.Query(`SELECT user_id, email, name, phone, role FROM users WHERE user_id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Role)
	if err == gocql.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertNotification writes an in-app notification row. Callers treat
// failures as best effort.
func (s *UserStore) InsertNotification(n models.Notification) error {
	session, err := database.GetUsersSession()
	if err != nil {
		return err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return session.Query(`INSERT INTO notifications (user_id, notification_id, title, body, created_at, read_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.UserID, n.ID, n.Title, n.Body, n.CreatedAt, n.ReadAt,
	).Exec()
}
