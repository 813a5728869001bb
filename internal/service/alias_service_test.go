package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/doaamohamed88/shortLinks/internal/repository"
	"github.com/doaamohamed88/shortLinks/internal/service"
	"github.com/doaamohamed88/shortLinks/internal/service/mocks"
	"github.com/doaamohamed88/shortLinks/internal/shortcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	service  service.AliasService
	aliases  *mocks.MockAliasRepository
	cache    *mocks.MockCacheRepository
	notifier *mocks.MockChangeNotifier
	watcher  *service.Watcher
}

// setupTestService wires the alias service to in-memory repositories.
func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	aliases := mocks.NewMockAliasRepository()
	cache := mocks.NewMockCacheRepository()
	notifier := mocks.NewMockChangeNotifier()
	watcher := service.NewWatcher(aliases, notifier, nil)
	t.Cleanup(watcher.Close)

	return &testEnv{
		service:  service.NewAliasService(aliases, cache, notifier, watcher, nil),
		aliases:  aliases,
		cache:    cache,
		notifier: notifier,
		watcher:  watcher,
	}
}

func TestAliasService_CreateAlias_Generated(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	alias, err := env.service.CreateAlias(ctx, &models.CreateAliasInput{OriginalURL: "https://example.com/test"})

	require.NoError(t, err)
	assert.Len(t, alias.ShortCode, shortcode.DefaultLength)
	assert.True(t, shortcode.InAlphabet(alias.ShortCode))
	assert.Equal(t, "https://example.com/test", alias.OriginalURL)
	assert.Zero(t, alias.Clicks)
	assert.Empty(t, alias.CountryStats)
	assert.False(t, alias.CreatedAt.IsZero())

	cached, err := env.cache.Get(ctx, alias.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, alias.OriginalURL, cached)
	assert.Equal(t, []string{alias.ShortCode}, env.notifier.Published())
}

func TestAliasService_CreateAlias_CustomAlias(t *testing.T) {
	env := setupTestService(t)

	alias, err := env.service.CreateAlias(context.Background(), &models.CreateAliasInput{
		OriginalURL: "example.com",
		CustomAlias: "my-link_1",
	})

	require.NoError(t, err)
	assert.Equal(t, "my-link_1", alias.ShortCode)
	assert.Equal(t, "https://example.com", alias.OriginalURL)
	assert.Zero(t, env.aliases.ExistsCalls, "custom aliases skip code allocation")
}

func TestAliasService_CreateAlias_DuplicateCustomAlias(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	first, err := env.service.CreateAlias(ctx, &models.CreateAliasInput{OriginalURL: "https://a.example", CustomAlias: "promo"})
	require.NoError(t, err)

	_, err = env.service.CreateAlias(ctx, &models.CreateAliasInput{OriginalURL: "https://b.example", CustomAlias: "promo"})
	assert.ErrorIs(t, err, repository.ErrAliasExists)

	stored, err := env.aliases.GetByShortCode(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, first.OriginalURL, stored.OriginalURL, "existing alias is not overwritten")
}

func TestAliasService_CreateAlias_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   models.CreateAliasInput
		wantErr error
	}{
		{name: "empty url", input: models.CreateAliasInput{OriginalURL: ""}, wantErr: service.ErrEmptyURL},
		{name: "blank url", input: models.CreateAliasInput{OriginalURL: "   \t"}, wantErr: service.ErrEmptyURL},
		{name: "alias with space", input: models.CreateAliasInput{OriginalURL: "https://x.io", CustomAlias: "a b"}, wantErr: service.ErrInvalidAlias},
		{name: "alias with slash", input: models.CreateAliasInput{OriginalURL: "https://x.io", CustomAlias: "a/b"}, wantErr: service.ErrInvalidAlias},
		{name: "alias with unicode", input: models.CreateAliasInput{OriginalURL: "https://x.io", CustomAlias: "café"}, wantErr: service.ErrInvalidAlias},
		{name: "alias too long", input: models.CreateAliasInput{OriginalURL: "https://x.io", CustomAlias: strings.Repeat("a", shortcode.MaxAliasLength+1)}, wantErr: service.ErrInvalidAlias},
		{name: "url too long", input: models.CreateAliasInput{OriginalURL: "https://x.io/" + strings.Repeat("p", service.MaxURLLength)}, wantErr: service.ErrURLTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestService(t)
			input := tt.input

			alias, err := env.service.CreateAlias(context.Background(), &input)

			assert.Nil(t, alias)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, service.ErrValidation)
			assert.Empty(t, env.notifier.Published())
		})
	}
}

func TestAliasService_CreateAlias_Normalization(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://example.com", want: "https://example.com"},
		{in: "http://example.com/path", want: "http://example.com/path"},
		{in: "HTTPS://Example.com", want: "HTTPS://Example.com"},
		{in: "  example.com/a?b=c  ", want: "https://example.com/a?b=c"},
		{in: "ftp://files.example.com", want: "https://ftp://files.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			env := setupTestService(t)

			alias, err := env.service.CreateAlias(context.Background(), &models.CreateAliasInput{OriginalURL: tt.in})

			require.NoError(t, err)
			assert.Equal(t, tt.want, alias.OriginalURL)
		})
	}
}

func TestAliasService_AllocateUniqueCode_RetriesCollisions(t *testing.T) {
	env := setupTestService(t)
	calls := 0
	env.aliases.ExistsFunc = func(code string) (bool, error) {
		calls++
		return calls < 3, nil
	}

	code, err := env.service.AllocateUniqueCode(context.Background(), 5)

	require.NoError(t, err)
	assert.Len(t, code, shortcode.DefaultLength)
	assert.Equal(t, 3, calls)
}

func TestAliasService_AllocateUniqueCode_Exhausted(t *testing.T) {
	env := setupTestService(t)
	env.aliases.ExistsFunc = func(string) (bool, error) { return true, nil }

	code, err := env.service.AllocateUniqueCode(context.Background(), 5)

	assert.ErrorIs(t, err, service.ErrCodeAllocationExhausted)
	assert.Empty(t, code)
	assert.Equal(t, 5, env.aliases.ExistsCalls)

	list, err := env.aliases.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "allocation never writes")
}

func TestAliasService_AllocateUniqueCode_DefaultAttempts(t *testing.T) {
	env := setupTestService(t)
	env.aliases.ExistsFunc = func(string) (bool, error) { return true, nil }

	_, err := env.service.AllocateUniqueCode(context.Background(), 0)

	assert.ErrorIs(t, err, service.ErrCodeAllocationExhausted)
	assert.Equal(t, service.DefaultAllocationAttempts, env.aliases.ExistsCalls)
}

func TestAliasService_AllocateUniqueCode_ExistsError(t *testing.T) {
	env := setupTestService(t)
	existsErr := errors.New("connection refused")
	env.aliases.ExistsFunc = func(string) (bool, error) { return false, existsErr }

	_, err := env.service.AllocateUniqueCode(context.Background(), 5)

	assert.ErrorIs(t, err, existsErr)
	assert.Equal(t, 1, env.aliases.ExistsCalls)
}

func TestAliasService_CreateAlias_AllocationExhausted(t *testing.T) {
	env := setupTestService(t)
	env.aliases.ExistsFunc = func(string) (bool, error) { return true, nil }

	alias, err := env.service.CreateAlias(context.Background(), &models.CreateAliasInput{OriginalURL: "https://example.com"})

	assert.Nil(t, alias)
	assert.ErrorIs(t, err, service.ErrCodeAllocationExhausted)
}

func TestAliasService_GetAlias(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	created, err := env.service.CreateAlias(ctx, &models.CreateAliasInput{OriginalURL: "https://example.com", CustomAlias: "home"})
	require.NoError(t, err)

	got, err := env.service.GetAlias(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, created.OriginalURL, got.OriginalURL)

	_, err = env.service.GetAlias(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrAliasNotFound)

	_, err = env.service.GetAlias(ctx, "bad code!")
	assert.ErrorIs(t, err, repository.ErrAliasNotFound)
}

func TestAliasService_DeleteAlias(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	created, err := env.service.CreateAlias(ctx, &models.CreateAliasInput{OriginalURL: "https://example.com"})
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteAlias(ctx, created.ShortCode))

	_, err = env.cache.Get(ctx, created.ShortCode)
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	_, err = env.aliases.GetByShortCode(ctx, created.ShortCode)
	assert.ErrorIs(t, err, repository.ErrAliasNotFound)

	assert.Equal(t, []string{created.ShortCode, created.ShortCode}, env.notifier.Published())
}

func TestAliasService_DeleteAlias_Idempotent(t *testing.T) {
	env := setupTestService(t)

	assert.NoError(t, env.service.DeleteAlias(context.Background(), "nonexistent"))
	assert.ErrorIs(t, env.service.DeleteAlias(context.Background(), "no/such"), service.ErrInvalidAlias)
}

func TestAliasService_ListAliases_NewestFirst(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	for _, code := range []string{"first", "second", "third"} {
		_, err := env.service.CreateAlias(ctx, &models.CreateAliasInput{OriginalURL: "https://example.com/" + code, CustomAlias: code})
		require.NoError(t, err)
	}

	list, err := env.service.ListAliases(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].ShortCode)
	assert.Equal(t, "second", list[1].ShortCode)
	assert.Equal(t, "first", list[2].ShortCode)
}

func TestAliasService_ConcurrentAccess(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	codes := make(chan string, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			alias, err := env.service.CreateAlias(ctx, &models.CreateAliasInput{
				OriginalURL: fmt.Sprintf("https://example.com/test%d", id),
			})
			if assert.NoError(t, err) {
				codes <- alias.ShortCode
			}
		}(i)
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]bool)
	for code := range codes {
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}

	list, err := env.service.ListAliases(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(seen))
}
