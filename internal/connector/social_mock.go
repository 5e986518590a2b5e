package connector

import (
	"context"
	"encoding/json"
	"net/url"

	"signon/backend/internal/apperr"
)

const mockSocialID = "mock-social"

type mockSocialConfig struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

func parseMockSocialConfig(raw json.RawMessage) (*mockSocialConfig, error) {
	var cfg mockSocialConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, apperr.New(apperr.ConnectorInvalidConfig, map[string]any{"detail": err.Error()})
	}
	if cfg.ClientID == "" {
		return nil, apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
			"detail": "clientId is required",
		})
	}
	return &cfg, nil
}

// mockSocial accepts any non-empty authorization code and echoes it back as
// the provider user id, so interaction flows can be driven end to end without
// a real identity provider.
type mockSocial struct {
	cfg *mockSocialConfig
}

func (s *mockSocial) AuthorizationURL(state, redirectURI string) string {
	q := url.Values{}
	q.Set("client_id", s.cfg.ClientID)
	q.Set("state", state)
	q.Set("redirect_uri", redirectURI)
	return "https://mock.social/oauth/authorize?" + q.Encode()
}

func (s *mockSocial) Exchange(ctx context.Context, artifact ExchangeArtifact) (*SocialProfile, error) {
	if artifact.Code == "" {
		return nil, apperr.New(apperr.ConnectorInsufficientRequestParams, nil)
	}
	return &SocialProfile{
		ID:   "mock-" + artifact.Code,
		Name: "Mock User",
	}, nil
}

func init() {
	register(&Implementation{
		Metadata: Metadata{
			ID:          mockSocialID,
			Type:        TypeSocial,
			Name:        "Mock Social",
			Description: "Echoes the authorization code back as the provider identity for tests and development.",
			Target:      "mock-social",
			Platform:    PlatformUniversal,
		},
		ValidateConfig: func(raw json.RawMessage) error {
			_, err := parseMockSocialConfig(raw)
			return err
		},
		NewSocial: func(raw json.RawMessage) (SocialExchanger, error) {
			cfg, err := parseMockSocialConfig(raw)
			if err != nil {
				return nil, err
			}
			return &mockSocial{cfg: cfg}, nil
		},
	})
}
