package models

import "time"

// Principal is an identity as reported by the identity provider.
type Principal struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
}

// Session is a signed-in principal. ID is carried in the session token.
type Session struct {
	ID        string    `json:"id"`
	Principal Principal `json:"principal"`
	ExpiresAt time.Time `json:"expires_at"`
}
