package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

// RedisResolver reads sessions written by the user service under
// session:<token> as {"user_id": ..., "role": ...}.
type RedisResolver struct {
	client *redis.Client
}

func NewRedisResolver(client *redis.Client) *RedisResolver {
	return &RedisResolver{client: client}
}

func (r *RedisResolver) Resolve(ctx context.Context, token string) (domain.Actor, error) {
	data, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Actor{}, ErrUnauthenticated
	}
	if err != nil {
		return domain.Actor{}, fmt.Errorf("redis get session failed: %w", err)
	}

	var actor domain.Actor
	if err := json.Unmarshal(data, &actor); err != nil {
		return domain.Actor{}, fmt.Errorf("unmarshal session failed: %w", err)
	}

	if actor.ID == "" || !actor.Role.Valid() {
		return domain.Actor{}, ErrUnauthenticated
	}

	return actor, nil
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}
