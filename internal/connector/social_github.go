package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"signon/backend/internal/apperr"
)

const (
	githubAuthURL  = "https://github.com/login/oauth/authorize"
	githubTokenURL = "https://github.com/login/oauth/access_token"
	githubUserURL  = "https://api.github.com/user"
)

type githubConfig struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	Scopes       []string `json:"scopes,omitempty"`
}

func parseGithubConfig(raw json.RawMessage) (*githubConfig, error) {
	var cfg githubConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, apperr.New(apperr.ConnectorInvalidConfig, map[string]any{"detail": err.Error()})
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
			"detail": "clientId and clientSecret are required",
		})
	}
	return &cfg, nil
}

// githubSocial exchanges a GitHub OAuth authorization code for the user's
// normalized profile.
type githubSocial struct {
	oauth  *oauth2.Config
	client *http.Client
}

func newGithubSocial(raw json.RawMessage) (SocialExchanger, error) {
	cfg, err := parseGithubConfig(raw)
	if err != nil {
		return nil, err
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"read:user", "user:email"}
	}
	return &githubSocial{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: githubAuthURL, TokenURL: githubTokenURL},
			Scopes:       scopes,
		},
		client: newHTTPClient(),
	}, nil
}

func (s *githubSocial) AuthorizationURL(state, redirectURI string) string {
	cfg := *s.oauth
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state)
}

func (s *githubSocial) Exchange(ctx context.Context, artifact ExchangeArtifact) (*SocialProfile, error) {
	if artifact.Code == "" {
		return nil, apperr.New(apperr.ConnectorInsufficientRequestParams, nil)
	}
	cfg := *s.oauth
	cfg.RedirectURL = artifact.RedirectURI
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := cfg.Exchange(ctx, artifact.Code)
	if err != nil {
		return nil, apperr.New(apperr.ConnectorSocialAuthCodeInvalid, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubUserURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, apperr.New(apperr.ConnectorInvalidResponse, map[string]any{
			"detail": fmt.Sprintf("status=%d body=%s", resp.StatusCode, string(b)),
		})
	}

	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, apperr.New(apperr.ConnectorInvalidResponse, map[string]any{"detail": err.Error()})
	}
	if user.ID == 0 {
		return nil, apperr.New(apperr.ConnectorInvalidResponse, map[string]any{"detail": "missing user id"})
	}
	name := user.Name
	if name == "" {
		name = user.Login
	}
	return &SocialProfile{
		ID:     strconv.FormatInt(user.ID, 10),
		Email:  user.Email,
		Name:   name,
		Avatar: user.AvatarURL,
	}, nil
}

func init() {
	register(&Implementation{
		Metadata: Metadata{
			ID:          "github-universal",
			Type:        TypeSocial,
			Name:        "GitHub",
			Description: "Signs users in with their GitHub account.",
			Target:      "github",
			Platform:    PlatformUniversal,
		},
		ValidateConfig: func(raw json.RawMessage) error {
			_, err := parseGithubConfig(raw)
			return err
		},
		NewSocial: newGithubSocial,
	})
}
