package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/matthewgall/epicdeals/internal/auth"
	"github.com/matthewgall/epicdeals/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	client := flag.String("client", "", "Client name embedded in the token")
	ttl := flag.Duration("ttl", 0, "Token lifetime, defaults to auth.token_ttl")
	flag.Parse()

	if strings.TrimSpace(*client) == "" {
		log.Fatal("client is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	service := auth.NewAuthService(cfg.Auth.TokenSecret, lifetime)
	if !service.Enabled() {
		log.Fatal("auth.token_secret is not configured")
	}

	token, err := service.GenerateToken(*client)
	if err != nil {
		log.Fatalf("issuing token: %v", err)
	}

	expires := time.Now().Add(lifetime).UTC().Format(time.RFC3339)
	log.Printf("Issued token for %s, expires %s", *client, expires)
	fmt.Println(token)
}
