package otel

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"signon/backend/internal/events"
)

// NewEventProducer returns an events.Producer that records verification
// events as OTel log records via the given LoggerProvider. Deployments
// without Kafka can still ship events through the OTLP pipeline. If provider
// is nil, returns a no-op producer.
func NewEventProducer(provider *sdklog.LoggerProvider) events.Producer {
	if provider == nil {
		return noopProducer{}
	}
	return &logProducer{logger: provider.Logger("signon.events")}
}

type noopProducer struct{}

func (noopProducer) Emit(context.Context, *events.Event) error { return nil }
func (noopProducer) Close() error                              { return nil }

type logProducer struct {
	logger otellog.Logger
}

// Emit converts the event to an OTel log record and emits it.
func (p *logProducer) Emit(ctx context.Context, event *events.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if len(event.Metadata) > 0 {
		if raw, err := json.Marshal(event.Metadata); err == nil {
			rec.SetBody(otellog.BytesValue(raw))
		}
	}
	if event.Type != "" {
		rec.AddAttributes(otellog.String("event_type", event.Type))
	}
	if event.JTI != "" {
		rec.AddAttributes(otellog.String("jti", event.JTI))
	}
	if event.Flow != "" {
		rec.AddAttributes(otellog.String("flow", event.Flow))
	}
	if event.IdentifierKind != "" {
		rec.AddAttributes(otellog.String("identifier_kind", event.IdentifierKind))
	}
	if event.ConnectorID != "" {
		rec.AddAttributes(otellog.String("connector_id", event.ConnectorID))
	}
	if event.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", event.UserID))
	}
	p.logger.Emit(ctx, rec)
	return nil
}

// Close is a no-op; the LoggerProvider's shutdown flushes pending records.
func (p *logProducer) Close() error { return nil }
