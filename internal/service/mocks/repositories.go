package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/doaamohamed88/shortLinks/internal/repository"
)

// MockAliasRepository implements repository.AliasRepository in memory.
// Each created alias gets a strictly later CreatedAt than the previous one.
type MockAliasRepository struct {
	mu      sync.RWMutex
	aliases map[string]*models.Alias
	clock   time.Time

	// ExistsFunc overrides the existence check when set.
	ExistsFunc func(code string) (bool, error)
	// IncrementErr is returned by IncrementVisit when set.
	IncrementErr error
	// ListErr is returned by List when set.
	ListErr error

	ExistsCalls    int
	IncrementCalls int
}

func NewMockAliasRepository() *MockAliasRepository {
	return &MockAliasRepository{
		aliases: make(map[string]*models.Alias),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *MockAliasRepository) Create(ctx context.Context, alias *models.Alias) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.aliases[alias.ShortCode]; exists {
		return repository.ErrAliasExists
	}

	m.clock = m.clock.Add(time.Second)
	alias.Clicks = 0
	alias.CountryStats = map[string]int64{}
	alias.CreatedAt = m.clock

	stored := *alias
	stored.CountryStats = map[string]int64{}
	m.aliases[alias.ShortCode] = &stored
	return nil
}

func (m *MockAliasRepository) Exists(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	m.ExistsCalls++
	check := m.ExistsFunc
	_, exists := m.aliases[code]
	m.mu.Unlock()

	if check != nil {
		return check(code)
	}
	return exists, nil
}

func (m *MockAliasRepository) GetByShortCode(ctx context.Context, code string) (*models.Alias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alias, exists := m.aliases[code]
	if !exists {
		return nil, repository.ErrAliasNotFound
	}
	return cloneAlias(alias), nil
}

func (m *MockAliasRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.aliases, code)
	return nil
}

func (m *MockAliasRepository) List(ctx context.Context) ([]models.Alias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	list := make([]models.Alias, 0, len(m.aliases))
	for _, alias := range m.aliases {
		list = append(list, *cloneAlias(alias))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ShortCode < list[j].ShortCode
	})
	return list, nil
}

func (m *MockAliasRepository) IncrementVisit(ctx context.Context, code, country string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IncrementCalls++
	if m.IncrementErr != nil {
		return m.IncrementErr
	}

	alias, exists := m.aliases[code]
	if !exists {
		return repository.ErrAliasNotFound
	}
	alias.Clicks++
	alias.CountryStats[country]++
	return nil
}

// SetIncrementErr swaps the injected increment failure under the lock.
func (m *MockAliasRepository) SetIncrementErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IncrementErr = err
}

// Increments returns the number of IncrementVisit calls so far.
func (m *MockAliasRepository) Increments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IncrementCalls
}

func (m *MockAliasRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases = make(map[string]*models.Alias)
	m.ExistsCalls = 0
	m.IncrementCalls = 0
}

func cloneAlias(alias *models.Alias) *models.Alias {
	out := *alias
	out.CountryStats = make(map[string]int64, len(alias.CountryStats))
	for country, count := range alias.CountryStats {
		out.CountryStats[country] = count
	}
	return &out
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]string
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]string),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, code string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	url, exists := m.cache[code]
	if !exists {
		return "", repository.ErrCacheMiss
	}
	return url, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, code, originalURL string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[code] = originalURL
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, code)
	return nil
}

func (m *MockCacheRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]string)
}
