// Command devtoken mints a bearer token for local testing. Authentication is
// owned by a separate service; this only produces tokens the API accepts.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"murmur/internal/config"
	"murmur/internal/middleware"
)

func main() {
	userID := flag.Uint("user", 1, "identity to put in the sub claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to mint tokens for a production config")
	}
	if *userID == 0 {
		log.Fatal("-user must be positive")
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, *userID, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
}
