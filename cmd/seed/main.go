package main

import (
	"context"
	"flag"
	"log"

	"seo-agents/backend/internal/config"
	"seo-agents/backend/internal/logging"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Fixed IDs keep the seed idempotent.
const (
	demoOrgID    = "00000000-0000-4000-8000-000000000001"
	demoClientID = "00000000-0000-4000-8000-000000000002"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := repository.Migrate(ctx, cfg.DSN()); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	// Connect to DB
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)

	// 1. Ensure the demo organization exists
	org := &models.Organization{
		ID:     demoOrgID,
		Name:   "Local Dev Agency",
		Domain: "localhost",
	}
	if err := store.UpsertOrganization(ctx, org); err != nil {
		log.Fatalf("Failed to upsert organization: %v", err)
	}
	logger.Info("Seeded organization", "id", org.ID)

	// 2. Seed a dental practice the agents can run against
	client := &models.Client{
		ID:                demoClientID,
		OrgID:             org.ID,
		PracticeName:      "Bright Smile Dental",
		Vertical:          models.VerticalDental,
		Services:          []string{"dental implants", "teeth whitening", "invisalign"},
		Location:          "Austin, TX",
		WebsiteDomain:     "brightsmile.example.com",
		Competitors:       []string{"austinsmiles.example.com", "capitaldental.example.com"},
		AccountHealth:     models.AccountHealthActive,
		SearchConsoleSite: "sc-domain:brightsmile.example.com",
		CredentialRef:     "env:BRIGHTSMILE_REFRESH_TOKEN",
	}
	if err := store.UpsertClient(ctx, client); err != nil {
		log.Fatalf("Failed to upsert client: %v", err)
	}
	logger.Info("Seeded client", "id", client.ID, "practice", client.PracticeName)

	logger.Info("Seeding complete!")
}
