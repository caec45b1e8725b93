package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
)

const (
	redisKeyPrefix = "medict:settings:"
	redisUsersKey  = "medict:settings:users"

	// updateRetries bounds optimistic-lock retries in Update
	updateRetries = 5
)

// RedisRepo stores each user's settings as a flat hash
// medict:settings:<user> and tracks users in the set medict:settings:users.
type RedisRepo struct {
	client *redis.Client
	log    logger.Logger
}

// NewRedisRepo creates a Redis-backed repo
func NewRedisRepo(client *redis.Client, log logger.Logger) *RedisRepo {
	return &RedisRepo{
		client: client,
		log:    logger.OrDefault(log).WithComponent(logger.ComponentSettings),
	}
}

func settingsKey(userID string) string {
	return redisKeyPrefix + userID
}

// toHash flattens s into hash fields named like the original columns
func toHash(s *Settings) map[string]interface{} {
	h := map[string]interface{}{
		"user_id": s.UserID,
		"enabled": strconv.FormatBool(s.Enabled),
	}
	for _, p := range s.Prayers {
		h[p.Key+"_enabled"] = strconv.FormatBool(p.Enabled)
		h[p.Key+"_start"] = p.Start
		h[p.Key+"_end"] = p.End
	}
	return h
}

// fromHash rebuilds settings; absent fields keep their defaults
func fromHash(userID string, h map[string]string) *Settings {
	s := Defaults(userID)
	s.Enabled = h["enabled"] == "true"
	for i := range s.Prayers {
		p := &s.Prayers[i]
		p.Enabled = h[p.Key+"_enabled"] == "true"
		if v, ok := h[p.Key+"_start"]; ok {
			p.Start = v
		}
		if v, ok := h[p.Key+"_end"]; ok {
			p.End = v
		}
	}
	return s
}

// Get loads userID's settings hash; ErrNotFound when absent
func (r *RedisRepo) Get(ctx context.Context, userID string) (*Settings, error) {
	h, err := r.client.HGetAll(ctx, settingsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if len(h) == 0 {
		return nil, ErrNotFound
	}
	return fromHash(userID, h), nil
}

// Save replaces the stored hash and registers the user
func (r *RedisRepo) Save(ctx context.Context, s *Settings) error {
	key := settingsKey(s.UserID)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, toHash(s))
	pipe.SAdd(ctx, redisUsersKey, s.UserID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	r.log.Debug("Settings saved", "user_id", s.UserID, "enabled", s.Enabled)
	return nil
}

// Update runs read-modify-write under WATCH so concurrent updates to the
// same user are not lost. Absent settings start from defaults.
func (r *RedisRepo) Update(ctx context.Context, userID string, patch Patch) (*Settings, error) {
	key := settingsKey(userID)
	var result *Settings

	txf := func(tx *redis.Tx) error {
		h, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		var s *Settings
		if len(h) == 0 {
			s = Defaults(userID)
		} else {
			s = fromHash(userID, h)
		}
		if err := s.Apply(patch); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, toHash(s))
			pipe.SAdd(ctx, redisUsersKey, userID)
			return nil
		})
		if err == nil {
			result = s
		}
		return err
	}

	for i := 0; i < updateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			r.log.Debug("Settings updated", "user_id", userID, "attempt", i+1)
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrUnknownPrayer) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return nil, fmt.Errorf("failed to update settings: too much contention on %s", key)
}

// List returns every user with stored settings, sorted
func (r *RedisRepo) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, redisUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ Repo = (*RedisRepo)(nil)
