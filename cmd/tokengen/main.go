// Command tokengen prints a bearer token for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"food-order-service/internal/auth"
	"food-order-service/internal/entity"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", "tokengen").Logger()

func main() {
	id := flag.String("id", "", "caller id (token subject)")
	role := flag.String("role", string(entity.RoleCustomer), "customer, cook or admin")
	name := flag.String("name", "", "display name")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "secret"
		logger.Warn().Msg("JWT_SECRET not set, using the development secret")
	}

	token, err := auth.Sign([]byte(secret), entity.Caller{ID: *id, Role: entity.Role(*role), Name: *name}, *ttl, time.Now())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to sign token")
	}
	fmt.Println(token)
}
