package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/finledger/ledger/internal/adapter/persistence"
	"github.com/finledger/ledger/internal/config"
	"github.com/finledger/ledger/internal/domain"
)

// Seeds the starter categories for SEED_USER_ID (default 1). Safe to run repeatedly.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	userID, err := strconv.ParseInt(getenvDefault("SEED_USER_ID", "1"), 10, 64)
	if err != nil || userID <= 0 {
		log.Fatalf("SEED_USER_ID must be a positive integer")
	}

	db, err := persistence.Open(ctx, cfg.DatabaseURL(), persistence.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()

	added, err := persistence.SeedCategories(ctx, db, domain.StarterCategories(userID))
	if err != nil {
		log.Fatalf("failed to seed categories: %v", err)
	}

	fmt.Printf("Seeded categories: user_id=%d added=%d\n", userID, added)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
