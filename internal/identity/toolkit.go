package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/often-run/gateway/internal/apierr"
)

// identityToolkitBase is the Firebase Identity Toolkit REST API's base URL.
const identityToolkitBase = "https://identitytoolkit.googleapis.com/v1"

// secureTokenBase serves the refresh-token exchange endpoint.
const secureTokenBase = "https://securetoken.googleapis.com/v1"

// Tokens is the credential bundle every successful signup/login/refresh
// call returns (spec §6).
type Tokens struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	UID          string `json:"uid,omitempty"`
}

// IdentityToolkitClient proxies signup/login/refresh to the Firebase
// Identity Toolkit REST API. There is no Firebase Go Admin SDK in this
// deployment's dependency set, and the Identity Toolkit is a plain REST
// API, so this is a thin stdlib net/http client rather than a heavier SDK
// wrapper (documented in DESIGN.md).
type IdentityToolkitClient struct {
	apiKey string
	client *http.Client
}

// NewIdentityToolkitClient builds a client scoped to one Firebase Web API key.
func NewIdentityToolkitClient(apiKey string) *IdentityToolkitClient {
	return &IdentityToolkitClient{apiKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

// Signup creates a new email/password account and returns its tokens.
func (c *IdentityToolkitClient) Signup(ctx context.Context, email, password string) (*Tokens, error) {
	var raw struct {
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
		LocalID      string `json:"localId"`
	}
	err := c.call(ctx, identityToolkitBase+"/accounts:signUp", map[string]interface{}{
		"email": email, "password": password, "returnSecureToken": true,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return &Tokens{IDToken: raw.IDToken, RefreshToken: raw.RefreshToken, ExpiresIn: raw.ExpiresIn, UID: raw.LocalID}, nil
}

// Login verifies email/password credentials and returns tokens.
func (c *IdentityToolkitClient) Login(ctx context.Context, email, password string) (*Tokens, error) {
	var raw struct {
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
		LocalID      string `json:"localId"`
	}
	err := c.call(ctx, identityToolkitBase+"/accounts:signInWithPassword", map[string]interface{}{
		"email": email, "password": password, "returnSecureToken": true,
	}, &raw)
	if err != nil {
		return nil, apierr.Unauthenticatedf("invalid credentials")
	}
	return &Tokens{IDToken: raw.IDToken, RefreshToken: raw.RefreshToken, ExpiresIn: raw.ExpiresIn, UID: raw.LocalID}, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *IdentityToolkitClient) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var raw struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
		UserID       string `json:"user_id"`
	}
	err := c.call(ctx, secureTokenBase+"/token", map[string]interface{}{
		"grant_type": "refresh_token", "refresh_token": refreshToken,
	}, &raw)
	if err != nil {
		return nil, apierr.Unauthenticatedf("invalid refresh token")
	}
	return &Tokens{IDToken: raw.IDToken, RefreshToken: raw.RefreshToken, ExpiresIn: raw.ExpiresIn, UID: raw.UserID}, nil
}

func (c *IdentityToolkitClient) call(ctx context.Context, endpoint string, payload map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s?key=%s", endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("identity toolkit call failed with status %d", resp.StatusCode)
	}
	return json.Unmarshal(respBody, out)
}
