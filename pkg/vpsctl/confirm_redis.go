/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

const confirmKeyPrefix = "vpsctl:confirm:"

// dropKeyRef deletes the key index only while it still points at the
// confirmation being taken, a newer Put for the same key keeps its index.
var dropKeyRef = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfirmations keeps pending confirmations in Redis, expiry is left
// to the key TTL.
type RedisConfirmations struct {
	Client *redis.Client
	now    func() time.Time
}

// NewRedisConfirmations connects to Redis and checks the connection.
func NewRedisConfirmations(ctx context.Context, addr, password string, db int) (*RedisConfirmations, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisConfirmations{Client: client, now: time.Now}, nil
}

func (r *RedisConfirmations) Put(ctx context.Context, p types.PendingConfirmation) error {
	ttl := p.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	keyRef := confirmKeyPrefix + "key:" + p.Key()
	old, err := r.Client.Get(ctx, keyRef).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if old != "" {
			pipe.Del(ctx, confirmKeyPrefix+old)
		}
		pipe.Set(ctx, confirmKeyPrefix+p.Id, data, ttl)
		pipe.Set(ctx, keyRef, p.Id, ttl)
		return nil
	})
	return err
}

func (r *RedisConfirmations) Take(ctx context.Context, actor, id string) (types.PendingConfirmation, error) {
	data, err := r.Client.Get(ctx, confirmKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.PendingConfirmation{}, notFound("confirm", "no pending confirmation %s", id)
	}
	if err != nil {
		return types.PendingConfirmation{}, err
	}

	var p types.PendingConfirmation
	if err := json.Unmarshal(data, &p); err != nil {
		return types.PendingConfirmation{}, err
	}
	if p.Actor != actor {
		return types.PendingConfirmation{}, notFound("confirm", "no pending confirmation %s", id)
	}

	// whoever deletes the key owns the confirmation
	n, err := r.Client.Del(ctx, confirmKeyPrefix+id).Result()
	if err != nil {
		return types.PendingConfirmation{}, err
	}
	if n == 0 {
		return types.PendingConfirmation{}, notFound("confirm", "no pending confirmation %s", id)
	}
	if err := dropKeyRef.Run(ctx, r.Client, []string{confirmKeyPrefix + "key:" + p.Key()}, id).Err(); err != nil {
		return types.PendingConfirmation{}, err
	}
	return p, nil
}

// Close closes the Redis client.
func (r *RedisConfirmations) Close() error {
	return r.Client.Close()
}
