package connector

import (
	"context"
	"encoding/json"

	"signon/backend/internal/apperr"
)

const mockEmailID = "mock-email-service"

type mockEmailConfig struct {
	APIKey    string     `json:"apiKey"`
	FromEmail string     `json:"fromEmail"`
	FromName  string     `json:"fromName,omitempty"`
	Templates []Template `json:"templates"`
}

func parseMockEmailConfig(raw json.RawMessage) (*mockEmailConfig, error) {
	var cfg mockEmailConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, apperr.New(apperr.ConnectorInvalidConfig, map[string]any{"detail": err.Error()})
	}
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil, apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
			"detail": "apiKey and fromEmail are required",
		})
	}
	if err := checkTemplates(cfg.Templates, true); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type mockEmail struct {
	cfg *mockEmailConfig
}

func (s *mockEmail) Send(ctx context.Context, to string, usage UsageType, code string) error {
	tpl, ok := findTemplate(s.cfg.Templates, usage)
	if !ok {
		return apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
			"detail": "no template for usage type " + string(usage),
		})
	}
	DefaultMockRecorder.record(MockMessage{
		ConnectorID: mockEmailID,
		To:          to,
		Usage:       usage,
		Code:        code,
		Subject:     tpl.Subject,
		Content:     renderCode(tpl.Content, code),
	})
	return nil
}

func init() {
	register(&Implementation{
		Metadata: Metadata{
			ID:          mockEmailID,
			Type:        TypeEmail,
			Name:        "Mock Email Service",
			Description: "Records passcode email deliveries in memory for tests and development.",
		},
		ValidateConfig: func(raw json.RawMessage) error {
			_, err := parseMockEmailConfig(raw)
			return err
		},
		NewSender: func(raw json.RawMessage) (Sender, error) {
			cfg, err := parseMockEmailConfig(raw)
			if err != nil {
				return nil, err
			}
			return &mockEmail{cfg: cfg}, nil
		},
	})
}
