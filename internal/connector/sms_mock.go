package connector

import (
	"context"
	"encoding/json"

	"signon/backend/internal/apperr"
)

const mockSMSID = "mock-short-message-service"

// mockSMSConfig mirrors a Twilio-style credential set so switching between
// the mock and a real provider exercises the same validation path.
type mockSMSConfig struct {
	AccountSID              string     `json:"accountSID"`
	AuthToken               string     `json:"authToken"`
	FromMessagingServiceSID string     `json:"fromMessagingServiceSID"`
	Templates               []Template `json:"templates"`
}

func parseMockSMSConfig(raw json.RawMessage) (*mockSMSConfig, error) {
	var cfg mockSMSConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, apperr.New(apperr.ConnectorInvalidConfig, map[string]any{"detail": err.Error()})
	}
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
			"detail": "accountSID and authToken are required",
		})
	}
	if err := checkTemplates(cfg.Templates, false); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mockSMS records deliveries instead of calling a provider.
type mockSMS struct {
	cfg *mockSMSConfig
}

func (s *mockSMS) Send(ctx context.Context, to string, usage UsageType, code string) error {
	tpl, ok := findTemplate(s.cfg.Templates, usage)
	if !ok {
		return apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
			"detail": "no template for usage type " + string(usage),
		})
	}
	DefaultMockRecorder.record(MockMessage{
		ConnectorID: mockSMSID,
		To:          to,
		Usage:       usage,
		Code:        code,
		Content:     renderCode(tpl.Content, code),
	})
	return nil
}

func init() {
	register(&Implementation{
		Metadata: Metadata{
			ID:          mockSMSID,
			Type:        TypeSMS,
			Name:        "Mock SMS Service",
			Description: "Records passcode SMS deliveries in memory for tests and development.",
		},
		ValidateConfig: func(raw json.RawMessage) error {
			_, err := parseMockSMSConfig(raw)
			return err
		},
		NewSender: func(raw json.RawMessage) (Sender, error) {
			cfg, err := parseMockSMSConfig(raw)
			if err != nil {
				return nil, err
			}
			return &mockSMS{cfg: cfg}, nil
		},
	})
}
