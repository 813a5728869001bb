package service

import (
	"sort"

	"github.com/doaamohamed88/shortLinks/internal/models"
)

const topCountriesLimit = 5

// Aggregate summarizes a listing. Countries are ranked by total count;
// ties keep the order in which countries were first seen, walking aliases
// in listing order and each alias's countries by name.
func Aggregate(aliases []models.Alias) models.Summary {
	summary := models.Summary{
		TotalURLs:    len(aliases),
		TopCountries: []models.CountryCount{},
	}

	index := make(map[string]int)
	var counts []models.CountryCount

	for _, alias := range aliases {
		summary.TotalClicks += alias.Clicks

		countries := make([]string, 0, len(alias.CountryStats))
		for country := range alias.CountryStats {
			countries = append(countries, country)
		}
		sort.Strings(countries)

		for _, country := range countries {
			i, seen := index[country]
			if !seen {
				i = len(counts)
				index[country] = i
				counts = append(counts, models.CountryCount{Country: country})
			}
			counts[i].Count += alias.CountryStats[country]
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if len(counts) > topCountriesLimit {
		counts = counts[:topCountriesLimit]
	}
	summary.TopCountries = append(summary.TopCountries, counts...)

	return summary
}
