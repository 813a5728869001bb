package models

import (
	"time"
)

// Alias is one short code and its destination. Clicks always equals the
// sum of CountryStats.
type Alias struct {
	ShortCode    string           `json:"short_code"`
	OriginalURL  string           `json:"original_url"`
	Clicks       int64            `json:"clicks"`
	CountryStats map[string]int64 `json:"country_stats"`
	CreatedAt    time.Time        `json:"created_at"`
}

type CreateAliasInput struct {
	OriginalURL string
	CustomAlias string
}

type CountryCount struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

// Summary is derived from the current alias listing and never stored.
type Summary struct {
	TotalURLs    int            `json:"total_urls"`
	TotalClicks  int64          `json:"total_clicks"`
	TopCountries []CountryCount `json:"top_countries"`
}
