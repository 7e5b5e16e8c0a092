package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/ohmbajaj/Neurotune-Backend/internal/apperror"
)

// Default Spotify accounts endpoints.
const (
	SpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// SpotifyScopes are requested on every authorization.
var SpotifyScopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-library-read",
}

// SpotifyConfig holds the registered application credentials.
// AuthURL and TokenURL fall back to the public Spotify endpoints when empty.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
}

// SpotifyProvider wraps golang.org/x/oauth2 for the Spotify authorization
// code flow.
//
//  1. AuthURL sends the user to Spotify's consent page.
//  2. Spotify redirects back with a short-lived code.
//  3. Exchange trades the code for an access + refresh token pair
//     (server to server, using the client secret).
//  4. Refresh mints a new access token when Spotify starts answering 401.
type SpotifyProvider struct {
	config *oauth2.Config
}

// NewSpotifyProvider creates a SpotifyProvider from cfg.
func NewSpotifyProvider(cfg SpotifyConfig) *SpotifyProvider {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = SpotifyAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = SpotifyTokenURL
	}

	return &SpotifyProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
				// Spotify wants the client credentials as HTTP Basic auth.
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}
}

// AuthURL returns the consent page URL carrying state.
func (p *SpotifyProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for Spotify tokens.
func (p *SpotifyProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging spotify code: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("auth: spotify returned an empty access token")
	}
	return token, nil
}

// Refresh obtains a new access token from refreshToken.
//
// The token source is seeded with the refresh token only, so it always goes
// to the token endpoint. Every failure, including a missing refresh token,
// is reported as apperror.ErrAuthRefresh.
func (p *SpotifyProvider) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperror.AuthRefreshFailed(errors.New("auth: no spotify refresh token stored"))
	}

	token, err := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", apperror.AuthRefreshFailed(fmt.Errorf("auth: refreshing spotify token: %w", err))
	}
	if token.AccessToken == "" {
		return "", apperror.AuthRefreshFailed(errors.New("auth: spotify refresh returned an empty access token"))
	}
	return token.AccessToken, nil
}
