package history

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
)

// RedisStore keeps one set of notified timestamps per doctor under a
// per-account key prefix. Set membership gives IsKnown directly and
// makes Record idempotent for free.
type RedisStore struct {
	client  *redis.Client
	account string
}

func NewRedisStore(client *redis.Client, account string) *RedisStore {
	return &RedisStore{client: client, account: account}
}

func (s *RedisStore) key(doctorName string) string {
	return fmt.Sprintf("sniper:history:%s:%s", s.account, doctorName)
}

func (s *RedisStore) IsKnown(ctx context.Context, doctorName string, at time.Time) (bool, error) {
	known, err := s.client.SIsMember(ctx, s.key(doctorName), at.Format(time.RFC3339)).Result()
	if err != nil {
		return false, apperrors.NewStorageUnavailable(err)
	}
	return known, nil
}

func (s *RedisStore) Record(ctx context.Context, doctorName string, at time.Time) error {
	if err := s.client.SAdd(ctx, s.key(doctorName), at.Format(time.RFC3339)).Err(); err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	return nil
}
