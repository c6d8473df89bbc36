package kv

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Redis is a Backend on a Redis server shared by several processes.
// Every Set is announced on a pub/sub channel, tagged with the writer's origin so Watch can skip our own writes.
type Redis struct {
	client  *redis.Client
	channel string
	origin  string
}

var (
	_ Backend = (*Redis)(nil)
	_ Watcher = (*Redis)(nil)
)

func OpenRedis(ctx context.Context, addr, namespace string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return NewRedis(client, namespace), nil
}

func NewRedis(client *redis.Client, namespace string) *Redis {
	return &Redis{
		client:  client,
		channel: namespace + ":changes",
		origin:  uuid.NewString(),
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, value, 0)
	pipe.Publish(ctx, r.channel, r.origin+"|"+key)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "setting %s", key)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Watch(ctx context.Context, keys []string, fn func(key string)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribing to changes")
	}

	wanted := keySet(keys)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			origin, key, found := strings.Cut(msg.Payload, "|")
			if !found || origin == r.origin {
				continue
			}
			if _, ok := wanted[key]; ok {
				fn(key)
			}
		}
	}
}
