package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Inventory kinds carried by InventoryChange.
const (
	KindCategory = "category"
	KindSeatPool = "seat_pool"
)

// InventoryChange tells other instances that counters of one category or
// seat pool moved, so they can drop what they cached about it.
type InventoryChange struct {
	Type   string `json:"type"`
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	TsUnix int64  `json:"ts_unix"`
}

type InventoryPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewInventoryPubSub(rdb *redis.Client) *InventoryPubSub {
	return &InventoryPubSub{
		rdb:     rdb,
		channel: ChannelInventoryChanged(),
	}
}

func (p *InventoryPubSub) PublishInventoryChanged(ctx context.Context, kind, key string) error {
	msg := InventoryChange{
		Type:   "inventory_changed",
		Kind:   kind,
		Key:    key,
		TsUnix: time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *InventoryPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ch InventoryChange)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev InventoryChange
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil && ev.Kind != "" {
				handler(ctx, ev)
			}
		}
	}
}
