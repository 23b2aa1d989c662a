// Package events publishes committed shoe and hand changes on Redis pub/sub.
package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"deckr/server/engine"
)

const DefaultChannel = "deckr:events"

type Redis struct {
	rdb     *redis.Client
	channel string
}

var _ engine.Notifier = (*Redis)(nil)

func NewRedis(addr, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{
		rdb:     redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

func (r *Redis) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.rdb.Close() }
func (r *Redis) Channel() string                { return r.channel }

// Client exposes the underlying connection, e.g. to subscribe.
func (r *Redis) Client() *redis.Client { return r.rdb }

func (r *Redis) Notify(ctx context.Context, c engine.Change) error {
	payload, err := Encode(c)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, payload).Err()
}

func Encode(c engine.Change) ([]byte, error) { return json.Marshal(c) }

func Decode(b []byte) (engine.Change, error) {
	var c engine.Change
	err := json.Unmarshal(b, &c)
	return c, err
}
