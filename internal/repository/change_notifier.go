package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const changesChannel = "aliases:changed"

// ChangeNotifier fans out "the alias table changed" signals between
// processes. The payload is the affected short code.
type ChangeNotifier interface {
	Publish(ctx context.Context, code string) error
	Subscribe(ctx context.Context) (ChangeFeed, error)
}

type ChangeFeed interface {
	Changes() <-chan string
	Close() error
}

type redisNotifier struct {
	redis *RedisDB
}

func NewChangeNotifier(redis *RedisDB) ChangeNotifier {
	return &redisNotifier{redis: redis}
}

func (n *redisNotifier) Publish(ctx context.Context, code string) error {
	if err := n.redis.Client.Publish(ctx, changesChannel, code).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

func (n *redisNotifier) Subscribe(ctx context.Context) (ChangeFeed, error) {
	ps := n.redis.Client.Subscribe(ctx, changesChannel)
	// Wait for the subscription confirmation so no publish is missed after return.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	feed := &redisFeed{
		ps:   ps,
		ch:   make(chan string, 16),
		done: make(chan struct{}),
	}
	go feed.pump()
	return feed, nil
}

type redisFeed struct {
	ps   *redis.PubSub
	ch   chan string
	done chan struct{}
	once sync.Once
}

func (f *redisFeed) pump() {
	defer close(f.ch)
	for msg := range f.ps.Channel() {
		select {
		case f.ch <- msg.Payload:
		case <-f.done:
			return
		}
	}
}

func (f *redisFeed) Changes() <-chan string {
	return f.ch
}

func (f *redisFeed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.ps.Close()
	})
	return err
}
