package main

import (
	"flag"
	"log"
	"strings"

	"github.com/finledger/ledger/internal/adapter/persistence"
	"github.com/finledger/ledger/internal/config"
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up, down or version")
	steps := flag.Int("steps", 0, "number of migrations to revert in down mode (0 reverts all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	migrator, err := persistence.NewMigrator(cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("failed to initialise migrations: %v", err)
	}
	defer migrator.Close()

	switch strings.ToLower(*mode) {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatalf("migration up failed: %v", err)
		}
		log.Println("Migration up completed successfully")
	case "down":
		if err := migrator.Down(*steps); err != nil {
			log.Fatalf("migration down failed: %v", err)
		}
		log.Println("Migration down completed successfully")
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			log.Fatalf("failed to read schema version: %v", err)
		}
		log.Printf("Schema version %d (dirty=%t)", version, dirty)
	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}
