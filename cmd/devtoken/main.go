// devtoken mints a development bearer token for the API.
//
// Usage:
//
//	JWT_SECRET=... go run ./cmd/devtoken -user <user-id> [-ttl 24h]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"vibevids/internal/middleware"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id to embed as the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}
	if *userID == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(1)
	}

	token, err := middleware.SignJWT(secret, middleware.TokenClaims{
		Sub:    *userID,
		Exp:    time.Now().Add(*ttl).Unix(),
		Issuer: "vibevids-dev",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
