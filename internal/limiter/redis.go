package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps counters as expiring keys:
// <prefix>fails:<email>:<ip> and <prefix>block:<email>:<ip>.
type Redis struct {
	client *redis.Client
	prefix string
	pol    Policy
}

func NewRedis(client *redis.Client, prefix string, pol Policy) *Redis {
	if prefix == "" {
		prefix = "lk:limiter:"
	}
	return &Redis{client: client, prefix: prefix, pol: pol}
}

func (l *Redis) keys(email string, ipHash []byte) (fails, block string) {
	id := NormalizeEmail(email) + ":" + hex.EncodeToString(ipHash)
	return l.prefix + "fails:" + id, l.prefix + "block:" + id
}

func (l *Redis) Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	_, block := l.keys(email, ipHash)
	ttl, err := l.client.PTTL(ctx, block).Result()
	if err != nil {
		return false, 0, err
	}
	// -2: no key, -1: no expiry (never set by us)
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

func (l *Redis) Success(ctx context.Context, email string, ipHash []byte) error {
	fails, block := l.keys(email, ipHash)
	return l.client.Del(ctx, fails, block).Err()
}

func (l *Redis) Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	fails, block := l.keys(email, ipHash)

	n, err := l.client.Incr(ctx, fails).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.client.Expire(ctx, fails, l.pol.Window).Err(); err != nil {
			return false, 0, err
		}
	}
	if n < int64(l.pol.MaxFails) {
		return false, 0, nil
	}
	if err := l.client.Set(ctx, block, "1", l.pol.BlockFor).Err(); err != nil {
		return false, 0, err
	}
	if err := l.client.Del(ctx, fails).Err(); err != nil {
		return false, 0, err
	}
	return true, l.pol.BlockFor, nil
}
