package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jarvis/internal/domain"
)

const DefaultRedisKey = "jarvis:history"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
	Size     int
}

// Redis stores exchanges as JSON in a capped list, newest at the head.
type Redis struct {
	client *redis.Client
	key    string
	size   int
}

// NewRedis connects and pings the server; callers fall back to Memory when
// it fails.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Key == "" {
		opts.Key = DefaultRedisKey
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	return &Redis{client: client, key: opts.Key, size: opts.Size}, nil
}

func (r *Redis) Append(ctx context.Context, exchange domain.Exchange) error {
	data, err := json.Marshal(exchange)
	if err != nil {
		return fmt.Errorf("encoding exchange: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, int64(r.size-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending to %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) Recent(ctx context.Context, n int) ([]domain.Exchange, error) {
	if n <= 0 {
		return nil, nil
	}

	raw, err := r.client.LRange(ctx, r.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.key, err)
	}

	out := make([]domain.Exchange, 0, len(raw))
	for _, item := range raw {
		var exchange domain.Exchange
		if err := json.Unmarshal([]byte(item), &exchange); err != nil {
			return nil, fmt.Errorf("decoding exchange: %w", err)
		}
		out = append(out, exchange)
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
