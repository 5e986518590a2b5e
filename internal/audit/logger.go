// Package audit records verification actions for operator review. Logging is
// best-effort and never affects the request outcome.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"signon/backend/internal/audit/domain"
	auditrepo "signon/backend/internal/audit/repository"
)

// SentinelJTI is the jti recorded for audit events that happen outside an
// interaction session (e.g. connector management).
const SentinelJTI = "_system"

// Actions recorded by the verification core.
const (
	ActionPasscodeSent       = "passcode_sent"
	ActionPasscodeVerified   = "passcode_verified"
	ActionPasscodeRejected   = "passcode_rejected"
	ActionSocialVerified     = "social_verified"
	ActionConnectorConfigSet = "connector_config_set"
	ActionConnectorEnabled   = "connector_enabled"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, jti, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP
// extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor
// for client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not
// returned.
func (l *Logger) LogEvent(ctx context.Context, jti, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if jti == "" {
		jti = SentinelJTI
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		JTI:       jti,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
