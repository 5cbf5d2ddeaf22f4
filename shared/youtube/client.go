package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"

	"content-pilot/shared/config"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Clients bundles the Data API service with what it is allowed to do.
type Clients struct {
	Service *youtube.Service
	// Authorized is true when the service carries an OAuth token and can
	// therefore download caption tracks.
	Authorized bool
}

// ErrNotConfigured means neither an API key nor an OAuth token is available.
var ErrNotConfigured = errors.New("YouTube Data API not configured")

// NewClients prefers a stored OAuth token and falls back to the API key.
func NewClients(ctx context.Context, cfg *config.YouTubeConfig, opts ...option.ClientOption) (*Clients, error) {
	if cfg.HasOAuth() {
		tok, err := loadToken(cfg.TokenFile)
		switch {
		case err == nil:
			ts := &tokenSaver{config: OAuthConfig(cfg), token: tok, tokenFile: cfg.TokenFile}
			httpClient := oauth2.NewClient(ctx, ts)
			svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
			if err != nil {
				return nil, fmt.Errorf("failed to create YouTube service: %w", err)
			}
			log.Printf("YouTube Data API client initialized with OAuth token (expires: %v)", tok.Expiry)
			return &Clients{Service: svc, Authorized: true}, nil
		case errors.Is(err, ErrNoToken):
			log.Printf("Warning: no YouTube token at %s, run with --authorize to enable caption download", cfg.TokenFile)
		default:
			return nil, err
		}
	}

	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	log.Println("YouTube Data API client initialized with API key (metadata only)")
	return &Clients{Service: svc}, nil
}
