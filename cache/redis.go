package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	Client *redis.Client
	ctx    = context.Background()
)

func InitRedis(logger *zap.Logger) error {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	addr := fmt.Sprintf("%s:%s", redisHost, redisPort)

	Client = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     "",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := Client.Ping(ctx).Err(); err != nil {
		logger.Error("redis_connection_failed",
			zap.Error(err),
			zap.String("addr", addr),
		)
		return err
	}

	logger.Info("redis_connected",
		zap.String("addr", addr),
	)

	return nil
}

func Set(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return Client.Set(ctx, key, data, expiration).Err()
}

func Get(key string, dest interface{}) error {
	val, err := Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("cache miss: %w", err)
	} else if err != nil {
		return fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return nil
}

func Delete(key string) error {
	return Client.Del(ctx, key).Err()
}

// DeletePattern removes every key matching the pattern (e.g. resp:1:*).
func DeletePattern(pattern string) error {
	return deleteMatching(
		func(cursor uint64) ([]string, uint64, error) {
			return Client.Scan(ctx, cursor, pattern, 100).Result()
		},
		func(keys []string) error {
			return Client.Del(ctx, keys...).Err()
		},
	)
}

// deleteMatching walks a SCAN-style cursor page by page, deleting each page
// of keys. Each call must resume from the cursor the previous page returned;
// the walk ends when the server hands back cursor 0.
func deleteMatching(scan func(cursor uint64) ([]string, uint64, error), del func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := scan(cursor)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if len(keys) > 0 {
			if err := del(keys); err != nil {
				return fmt.Errorf("delete keys failed: %w", err)
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// IncrementCounter bumps a counter and sets the TTL on the first increment.
func IncrementCounter(key string, expiration time.Duration) (int64, error) {
	val, err := Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	if val == 1 {
		if err := Client.Expire(ctx, key, expiration).Err(); err != nil {
			return val, err
		}
	}

	return val, nil
}

// Publish fans a payload out to every subscriber of the channel. Used as the
// change-notification primitive for document snapshots.
func Publish(channel string, payload []byte) error {
	return Client.Publish(ctx, channel, payload).Err()
}

// Subscribe delivers raw messages for a channel until the returned cancel
// func is called.
func Subscribe(channel string, onMessage func([]byte)) func() {
	sub := Client.Subscribe(ctx, channel)
	done := make(chan struct{})

	go func() {
		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				onMessage([]byte(msg.Payload))
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		sub.Close()
	}
}

// SetFlag stores a plain boolean key with no TTL (client-local persisted flag).
func SetFlag(key string, value bool) error {
	return Client.Set(ctx, key, fmt.Sprintf("%t", value), 0).Err()
}

func GetFlag(key string) bool {
	val, err := Client.Get(ctx, key).Result()
	return err == nil && val == "true"
}

func Close() error {
	if Client != nil {
		return Client.Close()
	}
	return nil
}
