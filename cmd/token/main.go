package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/finledger/ledger/internal/adapter/auth"
	"github.com/finledger/ledger/internal/config"
)

// Prints a bearer token for local testing, signed with JWT_SECRET.
func main() {
	userID := flag.Int64("user", 1, "user ID to issue the token for")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	service, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}

	token, err := service.GenerateAccessToken(*userID, *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
}
