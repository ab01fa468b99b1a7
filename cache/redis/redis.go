package redis

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisTeamloftCache struct {
	client redis.UniversalClient
}

func NewRedisTeamloftCache(ctx context.Context, devMode bool, redisEndpoint string) (*RedisTeamloftCache, error) {
	var client redis.UniversalClient
	if devMode {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
			// AWS elasticache endpoints require TLS
			TLSConfig: &tls.Config{},
		})
	}

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return &RedisTeamloftCache{client: client}, nil
}

func (redisCache *RedisTeamloftCache) Publish(ctx context.Context, channel string, message []byte) error {
	if err := redisCache.client.Publish(ctx, channel, message).Err(); err != nil {
		return err
	}
	return nil
}

func (redisCache *RedisTeamloftCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	pubsub := redisCache.client.Subscribe(ctx, channel)
	// Ensure subscription is established
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		log.Printf("Pubsub channel closed: %s", channel)
		return err
	}

	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	return nil
}

// Helper functions to generate Redis keys with hash tags for cluster compatibility
func buildPresenceKey(roomKey string, userId string) string {
	return "presence:{" + roomKey + "}:" + userId
}

func buildPresencePattern(roomKey string) string {
	return "presence:{" + roomKey + "}:*"
}

const unreadTTL = 24 * time.Hour

// SetPresence mirrors an in-memory room membership into redis with a TTL.
// The key expiring on its own marks the membership as stale; refreshing
// is just another SetPresence with the same values.
func (redisCache *RedisTeamloftCache) SetPresence(ctx context.Context, roomKey string, userId string, connectionId string, ttl time.Duration) error {
	return redisCache.client.Set(ctx, buildPresenceKey(roomKey, userId), connectionId, ttl).Err()
}

func (redisCache *RedisTeamloftCache) ClearPresence(ctx context.Context, roomKey string, userId string) error {
	return redisCache.client.Del(ctx, buildPresenceKey(roomKey, userId)).Err()
}

// GetRoomPresence returns the userIds with a live presence key for the room.
func (redisCache *RedisTeamloftCache) GetRoomPresence(ctx context.Context, roomKey string) ([]string, error) {
	pattern := buildPresencePattern(roomKey)
	prefixLen := len(pattern) - 1

	var userIds []string
	iter := redisCache.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if len(key) > prefixLen {
			userIds = append(userIds, key[prefixLen:])
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return userIds, nil
}

// Unread notification counters
func (redisCache *RedisTeamloftCache) IncrementUnreadCount(ctx context.Context, userId string) (int64, error) {
	key := "user:" + userId + ":unread_count"
	count, err := redisCache.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	redisCache.client.Expire(ctx, key, unreadTTL)
	return count, nil
}

func (redisCache *RedisTeamloftCache) ResetUnreadCount(ctx context.Context, userId string) error {
	key := "user:" + userId + ":unread_count"
	return redisCache.client.Del(ctx, key).Err()
}

func (redisCache *RedisTeamloftCache) GetUnreadCount(ctx context.Context, userId string) (int, error) {
	key := "user:" + userId + ":unread_count"
	val, err := redisCache.client.Get(ctx, key).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return val, nil
}
