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

const (
	defaultWorkerCount   = 3
	defaultChannelBuffer = 1000
	maxRetries           = 3
	recordTimeout        = 5 * time.Second
)

var ErrRecorderStopped = errors.New("visit recorder is stopped")

// VisitRecorder retries visit increments that failed on the request path.
// It is only used when a failed increment must not block the redirect.
type VisitRecorder interface {
	Start()
	Stop()
	Record(ctx context.Context, event *models.VisitEvent) error
}

type visitRecorder struct {
	aliasRepo   repository.AliasRepository
	notifier    repository.ChangeNotifier
	logger      *zap.Logger
	events      chan *models.VisitEvent
	workerCount int
	backoff     time.Duration
	wg          sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewVisitRecorder(
	aliasRepo repository.AliasRepository,
	notifier repository.ChangeNotifier,
	logger *zap.Logger,
) VisitRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &visitRecorder{
		aliasRepo:   aliasRepo,
		notifier:    notifier,
		logger:      logger,
		events:      make(chan *models.VisitEvent, defaultChannelBuffer),
		workerCount: defaultWorkerCount,
		backoff:     100 * time.Millisecond,
	}
}

func (p *visitRecorder) Start() {
	p.logger.Info("Starting visit recorder workers", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop refuses new events and waits until the buffered ones are processed.
func (p *visitRecorder) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.events)
	p.mu.Unlock()

	p.logger.Info("Stopping visit recorder...")
	p.wg.Wait()
	p.logger.Info("Visit recorder stopped")
}

func (p *visitRecorder) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Visit recorder worker started", zap.Int("id", id))
	for event := range p.events {
		p.process(event)
	}
	p.logger.Debug("Visit recorder worker stopped", zap.Int("id", id))
}

func (p *visitRecorder) process(event *models.VisitEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	var err error
retry:
	for i := 0; i < maxRetries; i++ {
		err = p.aliasRepo.IncrementVisit(ctx, event.ShortCode, event.Country)
		if err == nil {
			if pubErr := p.notifier.Publish(ctx, event.ShortCode); pubErr != nil {
				p.logger.Warn("Failed to publish alias change", zap.String("short_code", event.ShortCode), zap.Error(pubErr))
			}
			return
		}
		if errors.Is(err, repository.ErrAliasNotFound) {
			p.logger.Info("Dropping visit for deleted alias", zap.String("short_code", event.ShortCode))
			return
		}

		if i < maxRetries-1 {
			p.logger.Debug("Retrying visit increment",
				zap.String("short_code", event.ShortCode),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			select {
			case <-time.After(time.Duration(i+1) * p.backoff):
			case <-ctx.Done():
				err = ctx.Err()
				break retry
			}
		}
	}

	p.logger.Error("Failed to record visit after all retries",
		zap.String("short_code", event.ShortCode),
		zap.String("country", event.Country),
		zap.Error(err),
	)
}

// Record queues an event without blocking. A full buffer drops the event.
func (p *visitRecorder) Record(ctx context.Context, event *models.VisitEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrRecorderStopped
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.events <- event:
		return nil
	default:
		p.logger.Warn("Visit buffer full, dropping visit",
			zap.String("short_code", event.ShortCode),
		)
		return nil
	}
}
