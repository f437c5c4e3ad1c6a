package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/sma-records-api/internal/models"
	"github.com/noah-isme/sma-records-api/internal/service"
	"github.com/noah-isme/sma-records-api/pkg/config"
)

// tokengen mints a bearer token for local testing against the API, signed
// with the same JWT settings the server loads.
func main() {
	var (
		userID   string
		tenantID string
		role     string
		ttl      time.Duration
	)

	flag.StringVar(&userID, "user", "", "User ID placed in the token")
	flag.StringVar(&tenantID, "tenant", "", "Tenant ID the token acts for")
	flag.StringVar(&role, "role", string(models.RoleRegistrar), "SUPERADMIN, ADMIN, REGISTRAR or TEACHER")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime, defaults to JWT_ACCESS_TTL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if ttl <= 0 {
		ttl = cfg.JWT.AccessTTL
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      ttl,
	})

	token, expiresAt, err := tokens.Issue(userID, tenantID, models.UserRole(strings.ToUpper(role)))
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
