package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cobaltgrid/foundation/internal/foundation/domain"
	"github.com/golang-jwt/jwt/v5"
)

// ProviderConfig holds the OAuth client settings for one external provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	BaseURL      string // override for tests
}

// GoogleProvider exchanges authorization codes against Google's OAuth
// endpoints and reads the profile from the userinfo endpoint.
type GoogleProvider struct {
	cfg    ProviderConfig
	client *http.Client
}

func NewGoogleProvider(cfg ProviderConfig) *GoogleProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://oauth2.googleapis.com"
	}
	return &GoogleProvider{cfg: cfg, client: &http.Client{Timeout: 15 * time.Second}}
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (domain.ExternalIdentity, error) {
	idToken, err := exchangeCode(ctx, p.client, p.cfg.BaseURL+"/token", p.cfg, code)
	if err != nil {
		return domain.ExternalIdentity{}, err
	}

	claims, err := idTokenClaims(idToken)
	if err != nil {
		return domain.ExternalIdentity{}, err
	}
	return domain.ExternalIdentity{
		Provider: domain.ProviderGoogle,
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
	}, nil
}

// AppleProvider exchanges authorization codes against Apple's token endpoint
// and reads identity from the returned id_token.
type AppleProvider struct {
	cfg    ProviderConfig
	client *http.Client
}

func NewAppleProvider(cfg ProviderConfig) *AppleProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://appleid.apple.com"
	}
	return &AppleProvider{cfg: cfg, client: &http.Client{Timeout: 15 * time.Second}}
}

func (p *AppleProvider) ExchangeCode(ctx context.Context, code string) (domain.ExternalIdentity, error) {
	idToken, err := exchangeCode(ctx, p.client, p.cfg.BaseURL+"/auth/token", p.cfg, code)
	if err != nil {
		return domain.ExternalIdentity{}, err
	}

	claims, err := idTokenClaims(idToken)
	if err != nil {
		return domain.ExternalIdentity{}, err
	}
	return domain.ExternalIdentity{
		Provider: domain.ProviderApple,
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
	}, nil
}

// exchangeCode performs the authorization_code grant and returns the
// id_token from the response.
func exchangeCode(ctx context.Context, client *http.Client, endpoint string, cfg ProviderConfig, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("redirect_uri", cfg.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("token exchange responded %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.IDToken == "" {
		return "", fmt.Errorf("token response missing id_token")
	}
	return payload.IDToken, nil
}

type idClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// idTokenClaims reads the identity claims from a provider id_token. The
// token arrives over the provider's TLS channel in direct exchange for our
// client secret, so signature verification against the provider JWKS is
// deliberately skipped here.
func idTokenClaims(idToken string) (*idClaims, error) {
	claims := &idClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}
	return claims, nil
}
