package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/company-manager/internal/shared"
)

// State is the committed bookkeeping of one list view.
type State struct {
	Pagination shared.Pagination `json:"pagination"`
	Items      json.RawMessage   `json:"items,omitempty"`
	Loaded     bool              `json:"loaded"`
}

// Store persists list state and hands out request tickets. Commit must only
// succeed while ticket is the newest ticket issued for key.
type Store interface {
	Load(ctx context.Context, key string) (State, error)
	Begin(ctx context.Context, key string) (int64, error)
	Commit(ctx context.Context, key string, ticket int64, st State) (bool, error)
}

// RedisStore keeps list state next to the session in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore whose keys expire after ttl.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load returns the committed state, or the zero State when none exists.
func (s *RedisStore) Load(ctx context.Context, key string) (State, error) {
	raw, err := s.client.Get(ctx, stateKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("listing: load %s: %w", key, err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("listing: decode %s: %w", key, err)
	}
	return st, nil
}

// Begin issues the next ticket for key. Issuing a ticket supersedes every
// earlier ticket.
func (s *RedisStore) Begin(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, seqKey(key))
		if s.ttl > 0 {
			p.Expire(ctx, seqKey(key), s.ttl)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("listing: begin %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Commit writes st when ticket is still current. It reports false when a
// newer ticket was issued, in which case nothing is written.
func (s *RedisStore) Commit(ctx context.Context, key string, ticket int64, st State) (bool, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return false, fmt.Errorf("listing: encode %s: %w", key, err)
	}
	current := false
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		seq, err := tx.Get(ctx, seqKey(key)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if seq != ticket {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, stateKey(key), data, s.ttl)
			if s.ttl > 0 {
				p.Expire(ctx, seqKey(key), s.ttl)
			}
			return nil
		})
		if err == nil {
			current = true
		}
		return err
	}, seqKey(key))
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("listing: commit %s: %w", key, err)
	}
	return current, nil
}

func stateKey(key string) string {
	return key + ":state"
}

func seqKey(key string) string {
	return key + ":seq"
}
