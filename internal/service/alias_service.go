package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/doaamohamed88/shortLinks/internal/repository"
	"github.com/doaamohamed88/shortLinks/internal/shortcode"
	"go.uber.org/zap"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrEmptyURL                = fmt.Errorf("%w: url is required", ErrValidation)
	ErrURLTooLong              = fmt.Errorf("%w: url is longer than %d characters", ErrValidation, MaxURLLength)
	ErrInvalidAlias            = fmt.Errorf("%w: alias may only contain letters, digits, '-' and '_', up to %d characters", ErrValidation, shortcode.MaxAliasLength)
	ErrCodeAllocationExhausted = errors.New("could not allocate a unique short code")
)

const (
	DefaultAllocationAttempts = 5
	MaxURLLength              = 2048
	cacheTTL                  = 24 * time.Hour
)

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

type AliasService interface {
	CreateAlias(ctx context.Context, input *models.CreateAliasInput) (*models.Alias, error)
	AllocateUniqueCode(ctx context.Context, maxAttempts int) (string, error)
	GetAlias(ctx context.Context, code string) (*models.Alias, error)
	DeleteAlias(ctx context.Context, code string) error
	ListAliases(ctx context.Context) ([]models.Alias, error)
	Watch(ctx context.Context) (*Subscription, error)
}

type aliasService struct {
	aliasRepo repository.AliasRepository
	cacheRepo repository.CacheRepository
	notifier  repository.ChangeNotifier
	watcher   *Watcher
	logger    *zap.Logger
}

func NewAliasService(
	aliasRepo repository.AliasRepository,
	cacheRepo repository.CacheRepository,
	notifier repository.ChangeNotifier,
	watcher *Watcher,
	logger *zap.Logger,
) AliasService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &aliasService{
		aliasRepo: aliasRepo,
		cacheRepo: cacheRepo,
		notifier:  notifier,
		watcher:   watcher,
		logger:    logger,
	}
}

func (s *aliasService) CreateAlias(ctx context.Context, input *models.CreateAliasInput) (*models.Alias, error) {
	originalURL := normalizeURL(input.OriginalURL)
	if originalURL == "" {
		return nil, ErrEmptyURL
	}
	if len(originalURL) > MaxURLLength {
		return nil, ErrURLTooLong
	}

	code := strings.TrimSpace(input.CustomAlias)
	if code != "" {
		if !shortcode.ValidAlias(code) {
			return nil, ErrInvalidAlias
		}
	} else {
		generated, err := s.AllocateUniqueCode(ctx, DefaultAllocationAttempts)
		if err != nil {
			return nil, err
		}
		code = generated
	}

	alias := &models.Alias{
		ShortCode:    code,
		OriginalURL:  originalURL,
		CountryStats: map[string]int64{},
	}
	if err := s.aliasRepo.Create(ctx, alias); err != nil {
		return nil, err
	}

	if err := s.cacheRepo.Set(ctx, alias.ShortCode, alias.OriginalURL, cacheTTL); err != nil {
		s.logger.Warn("Failed to cache alias", zap.String("short_code", alias.ShortCode), zap.Error(err))
	}
	s.publish(ctx, alias.ShortCode)

	s.logger.Info("Alias created",
		zap.String("short_code", alias.ShortCode),
		zap.String("original_url", alias.OriginalURL),
	)
	return alias, nil
}

// AllocateUniqueCode draws random codes until one is not taken. It only
// checks; a concurrent creator can still claim the code before it is used.
func (s *aliasService) AllocateUniqueCode(ctx context.Context, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultAllocationAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, err := shortcode.Generate(shortcode.DefaultLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}

		exists, err := s.aliasRepo.Exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}

		s.logger.Debug("Short code collision", zap.String("code", code), zap.Int("attempt", attempt))
	}

	return "", ErrCodeAllocationExhausted
}

func (s *aliasService) GetAlias(ctx context.Context, code string) (*models.Alias, error) {
	if !shortcode.ValidAlias(code) {
		return nil, repository.ErrAliasNotFound
	}
	return s.aliasRepo.GetByShortCode(ctx, code)
}

func (s *aliasService) DeleteAlias(ctx context.Context, code string) error {
	if !shortcode.ValidAlias(code) {
		return ErrInvalidAlias
	}

	if err := s.aliasRepo.Delete(ctx, code); err != nil {
		return err
	}
	if err := s.cacheRepo.Delete(ctx, code); err != nil {
		s.logger.Warn("Failed to evict alias from cache", zap.String("short_code", code), zap.Error(err))
	}
	s.publish(ctx, code)

	s.logger.Info("Alias deleted", zap.String("short_code", code))
	return nil
}

func (s *aliasService) ListAliases(ctx context.Context) ([]models.Alias, error) {
	return s.aliasRepo.List(ctx)
}

func (s *aliasService) Watch(ctx context.Context) (*Subscription, error) {
	return s.watcher.Subscribe(ctx)
}

func (s *aliasService) publish(ctx context.Context, code string) {
	if err := s.notifier.Publish(ctx, code); err != nil {
		s.logger.Warn("Failed to publish alias change", zap.String("short_code", code), zap.Error(err))
	}
}

// normalizeURL trims the input and defaults the scheme to https. An input
// that is blank after trimming normalizes to "".
func normalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !schemePattern.MatchString(trimmed) {
		return "https://" + trimmed
	}
	return trimmed
}
