// Command minttoken issues an operator API token from the command line.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/nekogravitycat/facility-booking-bot/internal/auth"
)

func main() {
	operator := flag.String("operator", "", "operator name embedded in the token")
	flag.Parse()

	if *operator == "" {
		log.Fatal("usage: minttoken -operator <name>")
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Same default as the server's JWT_TOKEN_TTL.
	ttlStr := os.Getenv("JWT_TOKEN_TTL")
	if ttlStr == "" {
		ttlStr = "1h"
	}
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		log.Fatalf("invalid JWT_TOKEN_TTL: %v", err)
	}

	token, err := auth.NewJWTManager(secret, ttl).GenerateToken(*operator)
	if err != nil {
		log.Fatalf("failed to mint token: %v", err)
	}

	fmt.Println(token)
}
