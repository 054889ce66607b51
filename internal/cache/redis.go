package cache

import (
	"github.com/gofiber/storage/redis/v3"
)

// NewRedis connects to Redis at url. The driver pings on creation and
// panics when the server is unreachable.
func NewRedis(url string) *redis.Storage {
	return redis.New(redis.Config{
		URL: url,
	})
}
