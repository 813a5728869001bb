package mocks

import (
	"context"
	"sync"

	"github.com/doaamohamed88/shortLinks/internal/repository"
)

// MockChangeNotifier fans out published codes to in-process feeds.
type MockChangeNotifier struct {
	mu        sync.Mutex
	feeds     map[*mockFeed]struct{}
	published []string

	// SubscribeErr is returned by Subscribe when set.
	SubscribeErr error
}

func NewMockChangeNotifier() *MockChangeNotifier {
	return &MockChangeNotifier{feeds: make(map[*mockFeed]struct{})}
}

func (m *MockChangeNotifier) Publish(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.published = append(m.published, code)
	for feed := range m.feeds {
		select {
		case feed.ch <- code:
		default:
		}
	}
	return nil
}

func (m *MockChangeNotifier) Subscribe(ctx context.Context) (repository.ChangeFeed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}

	feed := &mockFeed{owner: m, ch: make(chan string, 64)}
	m.feeds[feed] = struct{}{}
	return feed, nil
}

// Published returns every code published so far, in order.
func (m *MockChangeNotifier) Published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.published...)
}

// Subscribers returns the number of open feeds.
func (m *MockChangeNotifier) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.feeds)
}

type mockFeed struct {
	owner *MockChangeNotifier
	ch    chan string
	once  sync.Once
}

func (f *mockFeed) Changes() <-chan string {
	return f.ch
}

func (f *mockFeed) Close() error {
	f.once.Do(func() {
		f.owner.mu.Lock()
		delete(f.owner.feeds, f)
		f.owner.mu.Unlock()
	})
	return nil
}
