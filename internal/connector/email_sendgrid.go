package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"signon/backend/internal/apperr"
)

const sendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

type sendGridConfig struct {
	APIKey    string     `json:"apiKey"`
	FromEmail string     `json:"fromEmail"`
	FromName  string     `json:"fromName,omitempty"`
	Templates []Template `json:"templates"`
}

func parseSendGridConfig(raw json.RawMessage) (*sendGridConfig, error) {
	var cfg sendGridConfig
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

// sendGridEmail delivers passcodes through the SendGrid v3 mail API.
type sendGridEmail struct {
	cfg    *sendGridConfig
	client *http.Client
}

func newSendGridEmail(raw json.RawMessage) (Sender, error) {
	cfg, err := parseSendGridConfig(raw)
	if err != nil {
		return nil, err
	}
	return &sendGridEmail{cfg: cfg, client: newHTTPClient()}, nil
}

func (s *sendGridEmail) Send(ctx context.Context, to string, usage UsageType, code string) error {
	tpl, ok := findTemplate(s.cfg.Templates, usage)
	if !ok {
		return apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
			"detail": "no template for usage type " + string(usage),
		})
	}
	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": to}}},
		},
		"from": map[string]string{
			"email": s.cfg.FromEmail,
			"name":  s.cfg.FromName,
		},
		"subject": tpl.Subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": renderCode(tpl.Content, code)},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendGridEndpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sendgrid: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func init() {
	register(&Implementation{
		Metadata: Metadata{
			ID:          "sendgrid-email-service",
			Type:        TypeEmail,
			Name:        "SendGrid Email",
			Description: "Sends verification passcodes through the SendGrid mail API.",
		},
		ValidateConfig: func(raw json.RawMessage) error {
			_, err := parseSendGridConfig(raw)
			return err
		},
		NewSender: newSendGridEmail,
	})
}
