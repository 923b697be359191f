package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Connect dials Redis the way the teacher's cart-service database.NewRedisClient
// does, adapted to take discrete host/password/db fields from config instead
// of a single URL.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("queue: redis connect: %w", err)
	}
	return client, nil
}
