package relay

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Fanout delivers a relayed frame to a conversation's room members. The
// local implementation covers a single instance; the Redis implementation
// bridges rooms across horizontally scaled instances.
type Fanout interface {
	Publish(ctx context.Context, chatID string, payload []byte) error
}

type LocalFanout struct {
	hub *Hub
}

func NewLocalFanout(hub *Hub) *LocalFanout {
	return &LocalFanout{hub: hub}
}

func (f *LocalFanout) Publish(_ context.Context, chatID string, payload []byte) error {
	f.hub.Broadcast(chatID, payload)
	return nil
}

const fanoutChannelPrefix = "chat:"

// RedisFanout publishes every frame to a per-conversation pub/sub channel.
// Each instance also subscribes and re-broadcasts to its local room members,
// so delivery reaches connections held by sibling instances.
type RedisFanout struct {
	rdb *redis.Client
	hub *Hub
}

func NewRedisFanout(rdb *redis.Client, hub *Hub) *RedisFanout {
	return &RedisFanout{rdb: rdb, hub: hub}
}

func (f *RedisFanout) Publish(ctx context.Context, chatID string, payload []byte) error {
	return f.rdb.Publish(ctx, fanoutChannelPrefix+chatID, payload).Err()
}

// Run subscribes to every conversation channel and re-broadcasts inbound
// frames locally. Blocks until the subscription is torn down.
func (f *RedisFanout) Run(ctx context.Context) {
	sub := f.rdb.PSubscribe(ctx, fanoutChannelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for msg := range ch {
		chatID := strings.TrimPrefix(msg.Channel, fanoutChannelPrefix)
		f.hub.Broadcast(chatID, []byte(msg.Payload))
	}
}
