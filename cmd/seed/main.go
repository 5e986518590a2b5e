// seed inserts a disabled row for every known connector implementation so the
// management API can list and configure them. Idempotent: existing rows are
// left untouched.
package main

import (
	"context"
	"log"
	"time"

	"signon/backend/internal/config"
	"signon/backend/internal/connector"
	"signon/backend/internal/db"
)

const seedQuery = `INSERT INTO connectors (connector_id, type, target, platform, config, enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, '{}', FALSE, $5, $5)
ON CONFLICT (connector_id) DO NOTHING`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	seeded := 0
	for _, impl := range connector.Implementations() {
		meta := impl.Metadata
		res, err := conn.ExecContext(ctx, seedQuery, meta.ID, meta.Type, meta.Target, meta.Platform, now)
		if err != nil {
			log.Fatalf("seed connector %s: %v", meta.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			seeded++
		}
	}
	log.Printf("Seed completed: %d connector(s) inserted, %d already present.",
		seeded, len(connector.Implementations())-seeded)
}
