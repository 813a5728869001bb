package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/doaamohamed88/shortLinks/internal/config"
	"github.com/doaamohamed88/shortLinks/internal/models"
	"golang.org/x/oauth2"
)

var ErrProviderRejected = errors.New("identity provider rejected the credentials")

// Provider verifies an email/password pair against an identity service.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*models.Principal, error)
}

// OAuthProvider signs in with the OAuth2 resource owner password grant and
// reads the principal from the userinfo endpoint.
type OAuthProvider struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

type userInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

func NewOAuthProvider(cfg config.IdentityConfig, httpClient *http.Client) *OAuthProvider {
	return &OAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
			Scopes:       []string{"openid", "email"},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  httpClient,
	}
}

func (p *OAuthProvider) SignIn(ctx context.Context, email, password string) (*models.Principal, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	token, err := p.config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, errors.New("userinfo has no email")
	}

	return &models.Principal{Subject: info.Subject, Email: info.Email}, nil
}
