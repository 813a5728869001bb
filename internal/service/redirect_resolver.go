package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/doaamohamed88/shortLinks/internal/repository"
	"github.com/doaamohamed88/shortLinks/internal/shortcode"
	"go.uber.org/zap"
)

var (
	ErrResolution           = errors.New("failed to resolve alias")
	ErrVisitAlreadyResolved = errors.New("visit already resolved")
)

// MaxRequestIDLength bounds the X-Request-ID values used for de-duplication.
const MaxRequestIDLength = 128

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

type VisitState int32

const (
	StateResolving VisitState = iota
	StateFound
	StateNotFound
	StateResolutionError
	StateRedirecting
	StateCompleted
)

func (s VisitState) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateFound:
		return "found"
	case StateNotFound:
		return "not_found"
	case StateResolutionError:
		return "resolution_error"
	case StateRedirecting:
		return "redirecting"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Visit is one anonymous hit on a short code. It can be resolved once.
type Visit struct {
	Code      string
	ClientIP  string
	RequestID string

	started     atomic.Bool
	state       atomic.Int32
	destination string
	country     string
}

func NewVisit(code, clientIP, requestID string) *Visit {
	return &Visit{Code: code, ClientIP: clientIP, RequestID: requestID}
}

func (v *Visit) State() VisitState {
	return VisitState(v.state.Load())
}

// Destination is set once the visit reaches StateFound.
func (v *Visit) Destination() string {
	return v.destination
}

// Country is empty when the visit was not counted.
func (v *Visit) Country() string {
	return v.country
}

// BeginRedirect moves a found visit to StateRedirecting.
func (v *Visit) BeginRedirect() bool {
	return v.state.CompareAndSwap(int32(StateFound), int32(StateRedirecting))
}

// Complete marks the redirect response as written.
func (v *Visit) Complete() bool {
	return v.state.CompareAndSwap(int32(StateRedirecting), int32(StateCompleted))
}

func (v *Visit) setState(s VisitState) {
	v.state.Store(int32(s))
}

// CountryClassifier names the country of a client address. It never fails;
// unresolvable addresses map to models.UnknownCountry.
type CountryClassifier interface {
	Country(ctx context.Context, ip string) string
}

type ResolverDeps struct {
	Aliases  repository.AliasRepository
	Cache    repository.CacheRepository
	Notifier repository.ChangeNotifier
	Geo      CountryClassifier
	// Latch is optional; without it retried requests are counted again.
	Latch repository.VisitLatch
	// Recorder receives increments that failed when failures are not fatal.
	Recorder VisitRecorder
}

type RedirectResolver struct {
	deps              ResolverDeps
	countFailureFatal bool
	logger            *zap.Logger
}

func NewRedirectResolver(deps ResolverDeps, countFailureFatal bool, logger *zap.Logger) *RedirectResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectResolver{deps: deps, countFailureFatal: countFailureFatal, logger: logger}
}

// Resolve finds the destination for a visit and counts it. The returned
// error is repository.ErrAliasNotFound, ErrResolution (wrapped) or
// ErrVisitAlreadyResolved.
func (r *RedirectResolver) Resolve(ctx context.Context, v *Visit) (string, error) {
	if !v.started.CompareAndSwap(false, true) {
		return "", ErrVisitAlreadyResolved
	}

	if !shortcode.ValidAlias(v.Code) {
		v.setState(StateNotFound)
		return "", repository.ErrAliasNotFound
	}

	destination, err := r.destination(ctx, v.Code)
	if err != nil {
		if errors.Is(err, repository.ErrAliasNotFound) {
			v.setState(StateNotFound)
			return "", err
		}
		v.setState(StateResolutionError)
		return "", fmt.Errorf("%w: %v", ErrResolution, err)
	}

	if r.firstDelivery(ctx, v) {
		if err := r.count(ctx, v); err != nil {
			if errors.Is(err, repository.ErrAliasNotFound) {
				v.setState(StateNotFound)
				return "", err
			}
			v.setState(StateResolutionError)
			return "", err
		}
	}

	v.destination = destination
	v.setState(StateFound)
	return destination, nil
}

func (r *RedirectResolver) destination(ctx context.Context, code string) (string, error) {
	url, err := r.deps.Cache.Get(ctx, code)
	if err == nil {
		return url, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		r.logger.Warn("Cache read failed", zap.String("short_code", code), zap.Error(err))
	}

	alias, err := r.deps.Aliases.GetByShortCode(ctx, code)
	if err != nil {
		return "", err
	}

	if err := r.deps.Cache.Set(ctx, code, alias.OriginalURL, cacheTTL); err != nil {
		r.logger.Warn("Failed to cache alias", zap.String("short_code", code), zap.Error(err))
	}
	return alias.OriginalURL, nil
}

// firstDelivery reports whether this request ID has not been counted yet
// for this code. Requests without a well-formed ID, and latch failures,
// count as first delivery.
func (r *RedirectResolver) firstDelivery(ctx context.Context, v *Visit) bool {
	if r.deps.Latch == nil || !validRequestID(v.RequestID) {
		return true
	}

	first, err := r.deps.Latch.Acquire(ctx, v.Code+":"+v.RequestID)
	if err != nil {
		r.logger.Warn("Visit latch unavailable", zap.String("request_id", v.RequestID), zap.Error(err))
		return true
	}
	if !first {
		r.logger.Debug("Visit already counted", zap.String("request_id", v.RequestID), zap.String("short_code", v.Code))
	}
	return first
}

func (r *RedirectResolver) count(ctx context.Context, v *Visit) error {
	v.country = r.deps.Geo.Country(ctx, v.ClientIP)

	err := r.deps.Aliases.IncrementVisit(ctx, v.Code, v.country)
	if err == nil {
		if pubErr := r.deps.Notifier.Publish(ctx, v.Code); pubErr != nil {
			r.logger.Warn("Failed to publish alias change", zap.String("short_code", v.Code), zap.Error(pubErr))
		}
		return nil
	}

	if errors.Is(err, repository.ErrAliasNotFound) {
		if cacheErr := r.deps.Cache.Delete(ctx, v.Code); cacheErr != nil {
			r.logger.Warn("Failed to evict alias from cache", zap.String("short_code", v.Code), zap.Error(cacheErr))
		}
		return err
	}

	if r.countFailureFatal || r.deps.Recorder == nil {
		r.logger.Error("Failed to count visit", zap.String("short_code", v.Code), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrResolution, err)
	}

	r.logger.Warn("Failed to count visit, queued for retry", zap.String("short_code", v.Code), zap.Error(err))
	event := &models.VisitEvent{ShortCode: v.Code, Country: v.country}
	if recErr := r.deps.Recorder.Record(context.WithoutCancel(ctx), event); recErr != nil {
		r.logger.Error("Failed to queue visit", zap.String("short_code", v.Code), zap.Error(recErr))
	}
	return nil
}

func validRequestID(id string) bool {
	return id != "" && len(id) <= MaxRequestIDLength && requestIDPattern.MatchString(id)
}
