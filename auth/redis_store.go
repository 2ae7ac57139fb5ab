package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"schoolRecords/config"
)

const (
	prefixFailures = "lockout:failures:"
	prefixLock     = "lockout:lock:"
)

// RedisStore keeps the counters in Redis so they survive restarts and are
// shared by every process using the same database. The lock key carries the
// cool-down as its TTL.
type RedisStore struct {
	client *redis.Client
	policy Policy
}

func NewRedisStore(client *redis.Client, policy Policy) *RedisStore {
	return &RedisStore{client: client, policy: policy.normalized()}
}

// DialRedis opens a client and checks the connection.
func DialRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (r *RedisStore) Policy() Policy { return r.policy }

func (r *RedisStore) Status(ctx context.Context, username string) (Status, error) {
	pipe := r.client.Pipeline()
	failures := pipe.Get(ctx, prefixFailures+username)
	ttl := pipe.PTTL(ctx, prefixLock+username)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Status{}, err
	}

	var st Status
	if v, err := failures.Result(); err == nil {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return Status{}, fmt.Errorf("lockout counter for %q: %w", username, convErr)
		}
		st.Failures = n
	} else if !errors.Is(err, redis.Nil) {
		return Status{}, err
	}

	if d := ttl.Val(); d > 0 {
		st.LockedUntil = time.Now().Add(d)
		st.Failures = r.policy.MaxFailures
	}
	return st, nil
}

func (r *RedisStore) RecordFailure(ctx context.Context, username string) (Status, error) {
	st, err := r.Status(ctx, username)
	if err != nil {
		return Status{}, err
	}
	if st.Locked(time.Now()) {
		return st, nil
	}

	n, err := r.client.Incr(ctx, prefixFailures+username).Result()
	if err != nil {
		return Status{}, err
	}
	st.Failures = int(n)
	if st.Failures < r.policy.MaxFailures {
		return st, nil
	}

	// The counter restarts at zero once the lock expires.
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, prefixLock+username, st.Failures, r.policy.LockDuration)
	pipe.Del(ctx, prefixFailures+username)
	if _, err := pipe.Exec(ctx); err != nil {
		return Status{}, err
	}
	st.LockedUntil = time.Now().Add(r.policy.LockDuration)
	return st, nil
}

func (r *RedisStore) Reset(ctx context.Context, username string) error {
	return r.client.Del(ctx, prefixFailures+username, prefixLock+username).Err()
}
