package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces the pub/sub channels so the same Redis can serve
// other concerns.
const channelPrefix = "notify:"

// RedisPublisher fans messages out over Redis pub/sub. Each group maps to the
// channel "notify:{group}"; websocket gateways subscribe to the channels of
// the groups their connected clients belong to.
type RedisPublisher struct {
	client redis.UniversalClient
}

// NewRedisPublisher connects to Redis using a URL of the form
// redis://[user:pass@]host:port/db and pings it once to fail fast on
// misconfiguration.
func NewRedisPublisher(ctx context.Context, redisURL string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisPublisher{client: client}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, messages ...Message) error {
	pipe := p.client.Pipeline()
	for _, msg := range messages {
		payload, err := marshalEnvelope(msg)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, ChannelName(msg.Group), payload)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing to redis: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// ChannelName maps a group to its Redis pub/sub channel.
func ChannelName(group string) string {
	return channelPrefix + group
}

// marshalEnvelope encodes the wire envelope consumed by the websocket
// gateway: {"type": ..., "data": {...}}.
func marshalEnvelope(msg Message) ([]byte, error) {
	envelope := struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{Type: msg.Type, Data: msg.Data}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshalling event envelope for group %s: %w", msg.Group, err)
	}
	return payload, nil
}

var _ Publisher = (*RedisPublisher)(nil)
