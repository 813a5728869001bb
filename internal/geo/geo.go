// Package geo classifies visitors by country.
package geo

import (
	"context"
	"errors"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"go.uber.org/zap"
)

var ErrNoCountry = errors.New("no country for address")

// Locator looks up the country display name for an IP address.
type Locator interface {
	Lookup(ctx context.Context, ip string) (string, error)
}

// Classifier wraps a Locator with a deadline and the Unknown fallback.
// Country never fails.
type Classifier struct {
	locator Locator
	timeout time.Duration
	logger  *zap.Logger
}

func NewClassifier(locator Locator, timeout time.Duration, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{locator: locator, timeout: timeout, logger: logger}
}

func (c *Classifier) Country(ctx context.Context, ip string) string {
	if c == nil || c.locator == nil {
		return models.UnknownCountry
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	country, err := c.locator.Lookup(ctx, ip)
	if err != nil || country == "" {
		c.logger.Debug("Geolocation failed, using fallback",
			zap.String("ip", ip),
			zap.Error(err),
		)
		return models.UnknownCountry
	}
	return country
}
