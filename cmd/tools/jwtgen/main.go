package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"warehouse-inventory-api/internal/auth"
	"warehouse-inventory-api/internal/config"
	"warehouse-inventory-api/internal/models"
)

func main() {
	var (
		userID     = flag.Int64("user", 1, "User ID")
		username   = flag.String("username", "admin", "Username recorded as the actor on pick requests")
		roles      = flag.String("roles", models.RoleAdmin, "Comma-separated list of roles (admin, sales, picker)")
		expiryMins = flag.Int("expiry", 1440, "Token expiry in minutes (default: 24 hours)")
		secret     = flag.String("secret", "", "JWT secret (overrides JWT_SECRET env var)")
		issuer     = flag.String("issuer", "", "JWT issuer (overrides JWT_ISS env var)")
		audience   = flag.String("audience", "", "JWT audience (overrides JWT_AUD env var)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *secret != "" {
		cfg.JWTSecret = *secret
	}
	if *issuer != "" {
		cfg.JWTIssuer = *issuer
	}
	if *audience != "" {
		cfg.JWTAudience = *audience
	}

	roleList := strings.Split(*roles, ",")
	for i, role := range roleList {
		roleList[i] = strings.TrimSpace(role)
	}
	if !models.ValidateRoles(roleList) {
		log.Fatalf("Roles must be chosen from %s", strings.Join(models.ValidRoles, ", "))
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Duration(*expiryMins)*time.Minute)
	if err := jwtManager.ValidateConfig(); err != nil {
		log.Fatalf("Invalid JWT settings: %v", err)
	}

	token, err := jwtManager.GenerateToken(*userID, *username, roleList)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("JWT Token generated successfully!\n\n")
	fmt.Printf("User ID: %d\n", *userID)
	fmt.Printf("Username: %s\n", *username)
	fmt.Printf("Roles: %s\n", strings.Join(roleList, ", "))
	fmt.Printf("Capabilities: %v\n", models.CapabilitiesFor(roleList).List())
	fmt.Printf("Expiry: %d minutes\n", *expiryMins)
	fmt.Printf("Issuer: %s\n", cfg.JWTIssuer)
	fmt.Printf("Audience: %s\n", cfg.JWTAudience)
	fmt.Printf("\nToken:\n%s\n\n", token)

	fmt.Printf("Usage example:\n")
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:8080/items\n", token)
}
