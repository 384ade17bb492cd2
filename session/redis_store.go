package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const keyPrefix = "signalbot:session:"

// RedisStore keeps wizard state in Redis so it survives restarts and is
// shared between bot replicas
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// ConnectRedis parses a redis:// URL and pings the server
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.WithField("addr", opts.Addr).Info("Connected to Redis")
	return client, nil
}

// NewRedisStore creates a store whose keys expire after ttl of inactivity
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, userID)
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (State, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to get session of %d: %w", userID, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// a corrupt entry only loses the wizard step
		log.WithFields(log.Fields{
			"userID": userID,
			"error":  err,
		}).Warn("Dropping unreadable session")
		return State{}, s.Clear(ctx, userID)
	}
	return state, nil
}

func (s *RedisStore) Set(ctx context.Context, userID int64, state State) error {
	if state.IsIdle() {
		return s.Clear(ctx, userID)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session of %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session of %d: %w", userID, err)
	}
	return nil
}
