// Package notifier рассылает события магазина через Redis pub/sub:
// изменения остатков между процессами, объявления и выдачу предметов
// игровому серверу.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/contextx"
	"goods_market/pkg/logx"
)

var (
	logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals
	json   = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals
)

const (
	channelStock    = "stock"
	channelAnnounce = "announce"
	channelDelivery = "delivery"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// StockApplier принимает изменения остатков, сделанные другими процессами.
type StockApplier interface {
	ApplyRemote(change entity.StockChange)
}

type stockMessage struct {
	Origin   string `json:"origin"`
	EntryID  string `json:"entry_id"`
	Reserved int    `json:"reserved"`
	Stock    int    `json:"stock"`
}

type announceMessage struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

type deliveryMessage struct {
	ActorID   string   `json:"actor_id"`
	ActorName string   `json:"actor_name"`
	ItemKey   string   `json:"item_key"`
	Amount    int      `json:"amount"`
	GiveItem  bool     `json:"give_item"`
	Commands  []string `json:"commands,omitempty"`
	Source    string   `json:"source"`
}

type Broadcaster struct {
	client publisher
	prefix string
	origin string
	now    func() time.Time
}

// NewBroadcaster каналы называются <prefix>:stock, <prefix>:announce и
// <prefix>:delivery.
func NewBroadcaster(client publisher, prefix string) *Broadcaster {
	return &Broadcaster{
		client: client,
		prefix: prefix,
		origin: xid.New().String(),
		now:    time.Now,
	}
}

func (b *Broadcaster) channel(name string) string {
	return b.prefix + ":" + name
}

func (b *Broadcaster) PublishStock(ctx context.Context, change entity.StockChange) error {
	return b.publish(ctx, channelStock, stockMessage{
		Origin:   b.origin,
		EntryID:  change.EntryID,
		Reserved: change.Reserved,
		Stock:    change.Stock,
	})
}

func (b *Broadcaster) Announce(ctx context.Context, text string) error {
	return b.publish(ctx, channelAnnounce, announceMessage{Text: text, At: b.now()})
}

// Deliver передаёт выдачу игровому серверу, который и кладёт предметы игроку.
func (b *Broadcaster) Deliver(ctx context.Context, actor entity.Actor, d entity.Delivery) error {
	return b.publish(ctx, channelDelivery, deliveryMessage{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ItemKey:   d.ItemKey,
		Amount:    d.Amount,
		GiveItem:  d.GiveItem,
		Commands:  d.Commands,
		Source:    d.Source,
	})
}

func (b *Broadcaster) publish(ctx context.Context, name string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", name, err)
	}

	if err := b.client.Publish(ctx, b.channel(name), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}

	return nil
}

// SubscribeStock слушает изменения остатков до отмены контекста.
func (b *Broadcaster) SubscribeStock(ctx context.Context, client subscriber, applier StockApplier) error {
	sub := client.Subscribe(ctx, b.channel(channelStock))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe stock: %w", err)
	}

	logger(ctx).Info("stock subscription started", slog.String("channel", b.channel(channelStock)))

	return b.Run(ctx, sub.Channel(), applier)
}

// Run применяет изменения из канала, пропуская собственные.
func (b *Broadcaster) Run(ctx context.Context, messages <-chan *redis.Message, applier StockApplier) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var change stockMessage
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				logger(ctx).Warn("malformed stock message", slog.String("payload", msg.Payload), logx.Error(err))
				continue
			}

			if change.Origin == b.origin {
				continue
			}

			applier.ApplyRemote(entity.StockChange{
				EntryID:  change.EntryID,
				Reserved: change.Reserved,
				Stock:    change.Stock,
			})
		}
	}
}
