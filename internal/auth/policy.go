package auth

import (
	"strings"

	"github.com/doaamohamed88/shortLinks/internal/models"
)

// AdminUsername is the only username the login form accepts.
const AdminUsername = "Bader"

type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Policy admits exactly one principal: the one whose email is the
// configured admin email.
type Policy struct {
	adminEmail string
}

func NewPolicy(adminEmail string) Policy {
	return Policy{adminEmail: strings.TrimSpace(adminEmail)}
}

func (p Policy) AdminEmail() string {
	return p.adminEmail
}

// Configured reports whether an admin email is set. An unconfigured policy
// denies everyone.
func (p Policy) Configured() bool {
	return p.adminEmail != ""
}

func (p Policy) Authorize(principal *models.Principal) Decision {
	if principal == nil || !p.Configured() {
		return Denied
	}
	if strings.TrimSpace(principal.Email) != p.adminEmail {
		return Denied
	}
	return Allowed
}
