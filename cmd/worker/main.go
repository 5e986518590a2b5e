// Worker consumes verification events from Kafka and forwards them to the
// OTLP log pipeline, so event history lands in the same backend as traces and
// metrics. Set KAFKA_BROKERS, EVENTS_KAFKA_TOPIC, KAFKA_GROUP_ID, and
// OTLP_ENDPOINT.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"signon/backend/internal/config"
	"signon/backend/internal/events"
	otelsetup "signon/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.EventsKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.OTLPEndpoint == "" {
		log.Fatal("worker: OTLP_ENDPOINT is required")
	}

	topic := cfg.EventsKafkaTopic
	if topic == "" {
		topic = "signon-events"
	}
	groupID := cfg.EventsKafkaGroupID
	if groupID == "" {
		groupID = "signon-events-worker"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "signon-worker", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("worker: telemetry shutdown: %v", err)
		}
	}()
	sink := otelsetup.NewEventProducer(providers.LoggerProvider)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s), forwarding to %s", topic, groupID, cfg.OTLPEndpoint)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		var event events.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("worker: skip malformed event: %v", err)
			continue
		}
		emitCtx, emitCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := sink.Emit(emitCtx, &event); err != nil {
			log.Printf("worker: forward event failed: %v", err)
		}
		emitCancel()
	}
}
