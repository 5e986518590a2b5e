// Server runs the identity verification HTTP API.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signon/backend/internal/audit"
	auditrepo "signon/backend/internal/audit/repository"
	"signon/backend/internal/config"
	connectorhandler "signon/backend/internal/connector/handler"
	connectorrepo "signon/backend/internal/connector/repository"
	connectorservice "signon/backend/internal/connector/service"
	"signon/backend/internal/db"
	"signon/backend/internal/devpasscode"
	devhandler "signon/backend/internal/devpasscode/handler"
	"signon/backend/internal/events"
	"signon/backend/internal/httputil"
	"signon/backend/internal/interaction"
	interactionhandler "signon/backend/internal/interaction/handler"
	passcoderepo "signon/backend/internal/passcode/repository"
	passcodeservice "signon/backend/internal/passcode/service"
	"signon/backend/internal/security"
	"signon/backend/internal/server"
	otelsetup "signon/backend/internal/telemetry/otel"
	userrepo "signon/backend/internal/user/repository"
)

const serviceName = "signon-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.InteractionTokenKey == "" {
		log.Fatal("config: INTERACTION_TOKEN_KEY must be set")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	// Events go to Kafka when brokers are configured, otherwise through the
	// OTLP log pipeline.
	var producer events.Producer
	kafkaProducer, err := events.NewKafkaProducer(cfg.EventsKafkaBrokersList(), cfg.EventsKafkaTopic)
	if err != nil {
		log.Fatalf("events: %v", err)
	}
	if kafkaProducer != nil {
		producer = kafkaProducer
	} else {
		producer = otelsetup.NewEventProducer(providers.LoggerProvider)
	}

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), httputil.ClientIP)
	registry := connectorservice.NewRegistry(connectorrepo.NewPostgresRepository(conn))

	var devSink passcodeservice.DevSink
	var devReader devhandler.Reader
	if cfg.DevPasscodeEnabled {
		store := devpasscode.NewMemoryStore(cfg.PasscodeLifetime())
		devSink = store
		devReader = store
		log.Println("dev passcode mode enabled; codes are retrievable at /api/dev/passcode")
	}

	engine := passcodeservice.NewEngine(passcodeservice.Deps{
		Store:      passcoderepo.NewPostgresRepository(conn),
		Connectors: registry,
		Audit:      auditLogger,
		Producer:   producer,
		Dev:        devSink,
	}, passcodeservice.Config{
		TTL:         cfg.PasscodeLifetime(),
		MaxTry:      cfg.PasscodeMaxTry,
		SendTimeout: cfg.SendTimeout(),
	})

	resolver := interaction.NewResolver(userrepo.NewPostgresRepository(conn))
	tokens := security.NewTokenProvider([]byte(cfg.InteractionTokenKey), cfg.InteractionTokenIssuer, cfg.InteractionTTL())

	router := server.NewRouter(server.Deps{
		Connectors: connectorhandler.New(registry, auditLogger, producer),
		Interaction: interactionhandler.New(interactionhandler.Deps{
			Tokens:   tokens,
			Engine:   engine,
			Socials:  registry,
			Resolver: resolver,
			Audit:    auditLogger,
			Producer: producer,
		}),
		HealthPinger: conn,
		DevPasscode:  devReader,
	})

	telemetryMW, err := providers.Middleware(serviceName)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           telemetryMW(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async event emits finish before tearing down the producer.
	time.Sleep(events.ShutdownDrainDuration)
	if err := producer.Close(); err != nil {
		log.Printf("events: close producer: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry: shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
