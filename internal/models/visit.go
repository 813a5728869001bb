package models

// UnknownCountry is recorded when the visitor could not be geolocated.
const UnknownCountry = "Unknown"

type VisitEvent struct {
	ShortCode string
	Country   string
}
