package canva

import (
	"context"
	"encoding/base64"
	"net/url"
	"time"

	"github.com/siete/assetforge/pkg/errors"
	"github.com/siete/assetforge/pkg/integrations"
)

const (
	authURL  = "https://www.canva.com/api/oauth/authorize"
	tokenURL = "https://api.canva.com/rest/v1/oauth/token"
)

// Scopes requested during authorization.
const Scopes = "asset:read asset:write design:content:read design:content:write " +
	"design:meta:read brandtemplate:content:read brandtemplate:meta:read"

// OAuthConfig holds the Canva integration credentials.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// OAuthClient handles Canva OAuth operations.
type OAuthClient struct {
	config   OAuthConfig
	http     *integrations.Client
	authURL  string
	tokenURL string
	now      func() time.Time
}

// NewOAuthClient creates a new OAuth client.
func NewOAuthClient(config OAuthConfig) *OAuthClient {
	return &OAuthClient{
		config:   config,
		http:     integrations.NewClient(nil, "canva-oauth", 0, map[string]string{"Accept": "application/json"}),
		authURL:  authURL,
		tokenURL: tokenURL,
		now:      time.Now,
	}
}

// WithEndpoints replaces the authorization and token endpoints.
func (c *OAuthClient) WithEndpoints(authURL, tokenURL string) *OAuthClient {
	c.authURL = authURL
	c.tokenURL = tokenURL
	return c
}

// Configured reports whether client credentials are present.
func (c *OAuthClient) Configured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// AuthorizationURL returns the consent URL for state and PKCE challenge.
func (c *OAuthClient) AuthorizationURL(state, challenge string) string {
	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {c.config.ClientID},
		"redirect_uri":          {c.config.RedirectURI},
		"state":                 {state},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
		"scope":                 {Scopes},
	}
	return c.authURL + "?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code, verifier string) (*Token, error) {
	return c.token(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.config.RedirectURI},
		"code_verifier": {verifier},
	})
}

// Refresh trades a refresh token for a new access token.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	return c.token(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// Credentials converts a token response into stored credentials.
// A missing refresh token keeps previous; a missing expiry means one hour.
func (c *OAuthClient) Credentials(tok *Token, previous Credentials) Credentials {
	out := previous
	out.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		out.RefreshToken = tok.RefreshToken
	}
	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	out.ExpiresAt = float64(c.now().Unix() + int64(expiresIn))
	return out
}

// ValidToken returns a usable access token for creds. When the stored token
// is expired it is refreshed and the updated credentials are returned so the
// caller can persist them; otherwise updated is nil.
func (c *OAuthClient) ValidToken(ctx context.Context, creds Credentials) (token string, updated *Credentials, err error) {
	if !creds.Expired(c.now()) {
		return creds.AccessToken, nil, nil
	}
	if creds.RefreshToken == "" {
		return "", nil, errors.New(errors.ErrCodeUnauthorized, "no refresh token available; Canva must be re-authorized")
	}
	if !c.Configured() {
		return "", nil, errors.New(errors.ErrCodeUnauthorized, "CANVA_CLIENT_ID and CANVA_CLIENT_SECRET must be set")
	}
	tok, err := c.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return "", nil, err
	}
	next := c.Credentials(tok, creds)
	return next.AccessToken, &next, nil
}

func (c *OAuthClient) token(ctx context.Context, form url.Values) (*Token, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(c.config.ClientID + ":" + c.config.ClientSecret))
	var tok Token
	if err := c.http.PostForm(ctx, c.tokenURL, map[string]string{"Authorization": "Basic " + basic}, form, &tok); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnauthorized, err, "canva token request")
	}
	if tok.AccessToken == "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "canva token response has no access token")
	}
	return &tok, nil
}
