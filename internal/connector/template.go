package connector

import (
	"strings"

	"signon/backend/internal/apperr"
)

// Template binds a message body to the usage type it serves. SMS templates
// use Content or a provider-side TemplateCode; email templates additionally
// carry a Subject.
type Template struct {
	UsageType    UsageType `json:"usageType"`
	Content      string    `json:"content,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	TemplateCode string    `json:"templateCode,omitempty"`
}

// requiredUsageTypes are the usage types every SMS and email config must
// cover. ForgotPassword messages fall back to the Test template when a
// dedicated one is absent, matching the management console's seed configs.
var requiredUsageTypes = []UsageType{UsageSignIn, UsageRegister, UsageTest}

// checkTemplates verifies that templates cover every required usage type and
// that each template carries a body (content or provider template code).
// Returns connector.invalid_config on any gap.
func checkTemplates(templates []Template, needSubject bool) error {
	byUsage := make(map[UsageType]Template, len(templates))
	for _, t := range templates {
		byUsage[t.UsageType] = t
	}
	for _, u := range requiredUsageTypes {
		t, ok := byUsage[u]
		if !ok {
			return apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
				"detail": "missing template for usage type " + string(u),
			})
		}
		if t.Content == "" && t.TemplateCode == "" {
			return apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
				"detail": "empty template for usage type " + string(u),
			})
		}
		if needSubject && t.Subject == "" {
			return apperr.New(apperr.ConnectorInvalidConfig, map[string]any{
				"detail": "missing subject for usage type " + string(u),
			})
		}
	}
	return nil
}

// findTemplate returns the template for usage, falling back to UsageTest for
// ForgotPassword. ok is false when neither exists.
func findTemplate(templates []Template, usage UsageType) (Template, bool) {
	var fallback *Template
	for i := range templates {
		t := templates[i]
		if t.UsageType == usage {
			return t, true
		}
		if usage == UsageForgotPassword && t.UsageType == UsageTest {
			fallback = &templates[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Template{}, false
}

// renderCode substitutes the {{code}} placeholder in a template body.
func renderCode(content, code string) string {
	return strings.ReplaceAll(content, "{{code}}", code)
}
