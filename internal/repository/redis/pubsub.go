package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kirinyoku/culturetix/internal/domain"
	"github.com/redis/go-redis/v9"
)

type CatalogPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewCatalogPubSub(rdb *redis.Client) *CatalogPubSub {
	return &CatalogPubSub{
		rdb:     rdb,
		channel: ChannelCatalogChanged(),
	}
}

type catalogChangedMsg struct {
	Type   string               `json:"type"`
	Entity domain.CatalogEntity `json:"entity"`
	ID     int64                `json:"id"`
	TsUnix int64                `json:"ts_unix"`
}

func (p *CatalogPubSub) PublishCatalogChanged(ctx context.Context, change domain.CatalogChange) error {
	msg := catalogChangedMsg{
		Type:   "catalog_changed",
		Entity: change.Entity,
		ID:     change.ID,
		TsUnix: time.Now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe delivers catalog changes to handler until ctx is done. Malformed
// messages are skipped.
func (p *CatalogPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, change domain.CatalogChange)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	// Wait for the subscription confirmation so no message published after
	// Subscribe returns control is missed.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg catalogChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil && msg.ID != 0 {
				handler(ctx, domain.CatalogChange{Entity: msg.Entity, ID: msg.ID})
			}
		}
	}
}

// ReservationPubSub fans reservation changes out on a Redis channel for
// live availability consumers.
type ReservationPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewReservationPubSub(rdb *redis.Client) *ReservationPubSub {
	return &ReservationPubSub{
		rdb:     rdb,
		channel: ChannelReservationChanged(),
	}
}

func (p *ReservationPubSub) PublishReservationChanged(ctx context.Context, change domain.ReservationChange) error {
	b, err := json.Marshal(change)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}
