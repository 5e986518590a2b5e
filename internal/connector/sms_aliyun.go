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

const aliyunSMSEndpoint = "https://dysmsapi.aliyuncs.com/sms/send"

// aliyunSMSConfig is the validated payload for the Aliyun short message
// service connector. Templates reference provider-side template codes.
type aliyunSMSConfig struct {
	AccessKeyID     string     `json:"accessKeyId"`
	AccessKeySecret string     `json:"accessKeySecret"`
	SignName        string     `json:"signName"`
	Templates       []Template `json:"templates"`
}

func parseAliyunSMSConfig(raw json.RawMessage) (*aliyunSMSConfig, error) {
	var cfg aliyunSMSConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, apperr.New(apperr.ConnectorInvalidConfig, map[string]any{"detail": err.Error()})
	}
	if cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.SignName == "" {
		return nil, apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
			"detail": "accessKeyId, accessKeySecret, and signName are required",
		})
	}
	if err := checkTemplates(cfg.Templates, false); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// aliyunSMS delivers passcodes through the Aliyun SMS HTTP API.
type aliyunSMS struct {
	cfg    *aliyunSMSConfig
	client *http.Client
}

func newAliyunSMS(raw json.RawMessage) (Sender, error) {
	cfg, err := parseAliyunSMSConfig(raw)
	if err != nil {
		return nil, err
	}
	return &aliyunSMS{cfg: cfg, client: newHTTPClient()}, nil
}

// Send dispatches the passcode as a template parameter. The provider renders
// the template bound to the configured template code.
func (s *aliyunSMS) Send(ctx context.Context, to string, usage UsageType, code string) error {
	tpl, ok := findTemplate(s.cfg.Templates, usage)
	if !ok {
		return apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
			"detail": "no template for usage type " + string(usage),
		})
	}
	body := map[string]string{
		"phoneNumbers":  to,
		"signName":      s.cfg.SignName,
		"templateCode":  tpl.TemplateCode,
		"templateParam": fmt.Sprintf(`{"code":%q}`, code),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, aliyunSMSEndpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.cfg.AccessKeyID, s.cfg.AccessKeySecret)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("aliyun sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func init() {
	register(&Implementation{
		Metadata: Metadata{
			ID:          "aliyun-short-message-service",
			Type:        TypeSMS,
			Name:        "Aliyun Short Message Service",
			Description: "Sends verification passcodes through Aliyun SMS.",
		},
		ValidateConfig: func(raw json.RawMessage) error {
			_, err := parseAliyunSMSConfig(raw)
			return err
		},
		NewSender: newAliyunSMS,
	})
}
