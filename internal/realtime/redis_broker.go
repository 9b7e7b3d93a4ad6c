package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/loops-backend/internal/model"
)

const channelPrefix = "loops:thread:"

// ChannelFor is the Redis pub/sub channel carrying a listing's messages.
func ChannelFor(listingID uint64) string {
	return channelPrefix + strconv.FormatUint(listingID, 10)
}

// NewRedisClient connects to the Redis server at url. It returns nil without
// error when url is empty, meaning delivery stays within this process.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisBroker shares messages between API instances. Publish hands the
// message to the local hub first and then to Redis, so viewers on this
// instance keep receiving while Redis is down. Run delivers what the other
// instances published and skips this instance's own echoes.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	origin string
}

// envelope is the payload on a thread channel.
type envelope struct {
	Origin  string        `json:"origin"`
	Message model.Message `json:"message"`
}

func NewRedisBroker(client *redis.Client, hub *Hub) *RedisBroker {
	return &RedisBroker{client: client, hub: hub, origin: uuid.NewString()}
}

func (b *RedisBroker) Publish(ctx context.Context, msg model.Message) error {
	b.hub.Deliver(msg)
	payload, err := json.Marshal(envelope{Origin: b.origin, Message: msg})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, ChannelFor(msg.ListingID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", ChannelFor(msg.ListingID), err)
	}
	return nil
}

// Run relays every thread channel into the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s*: %w", channelPrefix, err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := decodeEnvelope(m.Channel, m.Payload)
			if err != nil {
				log.Printf("[realtime] dropping payload on %s: %v", m.Channel, err)
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			b.hub.Deliver(env.Message)
		}
	}
}

func decodeEnvelope(channel, payload string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return env, err
	}
	if want := ChannelFor(env.Message.ListingID); channel != want {
		return env, fmt.Errorf("message for listing %d arrived on %s", env.Message.ListingID, channel)
	}
	return env, nil
}
