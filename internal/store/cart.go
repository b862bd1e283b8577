package store

import (
	"context"
	"encoding/json"

	"kirana_back_end/internal/database"
	"kirana_back_end/internal/models"

	"github.com/redis/go-redis/v9"
)

// CartStore keeps carts in Redis as a JSON array under cart:<userID>.
type CartStore struct{}

func NewCartStore() *CartStore { return &CartStore{} }

func cartKey(userID string) string { return "cart:" + userID }

func (s *CartStore) Get(ctx context.Context, userID string) ([]models.CartItem, error) {
	data, err := database.RedisClient.Get(ctx, cartKey(userID)).Result()
	if err == redis.Nil || data == "" {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	var items []models.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *CartStore) Set(ctx context.Context, userID string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return database.RedisClient.Set(ctx, cartKey(userID), data, 0).Err()
}

// Clear drops the cart, called when an order reaches a terminal payment
// status.
func (s *CartStore) Clear(ctx context.Context, userID string) error {
	return database.RedisClient.Del(ctx, cartKey(userID)).Err()
}
