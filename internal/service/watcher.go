package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/doaamohamed88/shortLinks/internal/repository"
	"go.uber.org/zap"
)

var ErrWatcherClosed = errors.New("watcher is closed")

const snapshotTimeout = 5 * time.Second

// Watcher serves the live alias listing. Every subscriber gets the full
// ordered listing on subscribe and again after each change notification.
type Watcher struct {
	aliasRepo repository.AliasRepository
	notifier  repository.ChangeNotifier
	logger    *zap.Logger

	mu     sync.Mutex
	closed bool
	subs   map[*Subscription]struct{}
	wg     sync.WaitGroup
}

func NewWatcher(aliasRepo repository.AliasRepository, notifier repository.ChangeNotifier, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		aliasRepo: aliasRepo,
		notifier:  notifier,
		logger:    logger,
		subs:      make(map[*Subscription]struct{}),
	}
}

// Subscription delivers listing snapshots until closed. Only the latest
// snapshot is buffered; a slow reader skips intermediate ones.
type Subscription struct {
	updates chan []models.Alias
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func (s *Subscription) Updates() <-chan []models.Alias {
	return s.updates
}

// Close unsubscribes and waits for delivery to stop. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}

// Subscribe starts a subscription bound to ctx. It ends when ctx is done,
// when Close is called, or when the watcher closes.
func (w *Watcher) Subscribe(ctx context.Context) (*Subscription, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrWatcherClosed
	}
	w.wg.Add(1)
	w.mu.Unlock()

	feed, err := w.notifier.Subscribe(ctx)
	if err != nil {
		w.wg.Done()
		return nil, err
	}

	sub := &Subscription{
		updates: make(chan []models.Alias, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	w.mu.Lock()
	if w.closed {
		sub.once.Do(func() { close(sub.done) })
	}
	w.subs[sub] = struct{}{}
	w.mu.Unlock()

	go w.run(ctx, sub, feed)
	return sub, nil
}

func (w *Watcher) run(ctx context.Context, sub *Subscription, feed repository.ChangeFeed) {
	defer w.wg.Done()
	defer close(sub.stopped)
	defer close(sub.updates)
	defer func() {
		feed.Close()
		w.mu.Lock()
		delete(w.subs, sub)
		w.mu.Unlock()
	}()

	w.refresh(ctx, sub)

	changes := feed.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			drain(changes)
			w.refresh(ctx, sub)
		}
	}
}

func (w *Watcher) refresh(ctx context.Context, sub *Subscription) {
	listCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	aliases, err := w.aliasRepo.List(listCtx)
	if err != nil {
		w.logger.Warn("Failed to load alias snapshot", zap.Error(err))
		return
	}

	select {
	case <-sub.updates:
	default:
	}
	select {
	case sub.updates <- aliases:
	default:
	}
}

// Close stops accepting subscriptions and ends the live ones.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	subs := make([]*Subscription, 0, len(w.subs))
	for sub := range w.subs {
		subs = append(subs, sub)
	}
	w.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.done) })
	}
	w.wg.Wait()
}

// drain coalesces a burst of notifications into one refresh.
func drain(changes <-chan string) {
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
