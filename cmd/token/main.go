// Command token issues a bearer token signed with the configured JWT secret,
// for local use and smoke tests against the API.
package main

import (
	"flag"
	"fmt"
	"log"

	"factory-backend/internal/auth"
	"factory-backend/internal/config"
)

func main() {
	userID := flag.Int("user", 1, "User ID placed in the token")
	email := flag.String("email", "planner@example.com", "Email placed in the token")
	role := flag.String("role", auth.RolePlanner, "Role: planner, operator or admin")
	flag.Parse()

	switch *role {
	case auth.RolePlanner, auth.RoleOperator, auth.RoleAdmin:
	default:
		log.Fatalf("Unknown role %q", *role)
	}

	cfg := config.Load()
	token, err := auth.NewJWTManager(cfg).GenerateToken(*userID, *email, *role)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
