// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jason-s-yu/quizroom/internal/catalog"
)

// Rdb is the global Redis client. Connect it once at application startup;
// nil means caching is disabled and every catalog read goes to Postgres.
var Rdb *redis.Client

// packKeyPrefix namespaces cached quiz packs.
const packKeyPrefix = "quizroom:pack:"

// DefaultPackTTL bounds staleness after a pack is edited by another node.
var DefaultPackTTL = 10 * time.Minute

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// GetQuizPack fetches a cached pack. The second return is false on a miss,
// on a decode failure, or when caching is disabled.
func GetQuizPack(ctx context.Context, id uuid.UUID) (*catalog.QuizPack, bool) {
	if Rdb == nil {
		return nil, false
	}
	data, err := Rdb.Get(ctx, packKeyPrefix+id.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var pack catalog.QuizPack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, false
	}
	return &pack, true
}

// StoreQuizPack caches a pack with the default TTL. Failures are returned
// for logging but callers treat the cache as best effort.
func StoreQuizPack(ctx context.Context, pack *catalog.QuizPack) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(pack)
	if err != nil {
		return fmt.Errorf("failed to marshal quiz pack %s: %w", pack.ID, err)
	}
	if err := Rdb.Set(ctx, packKeyPrefix+pack.ID.String(), data, DefaultPackTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache quiz pack %s: %w", pack.ID, err)
	}
	return nil
}

// InvalidateQuizPack drops a cached pack after an edit.
func InvalidateQuizPack(ctx context.Context, id uuid.UUID) error {
	if Rdb == nil {
		return nil
	}
	return Rdb.Del(ctx, packKeyPrefix+id.String()).Err()
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
