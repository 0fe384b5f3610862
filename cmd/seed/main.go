// seed applies migrations, bootstraps the default project, document types and
// roles, and optionally creates an administrator in the default project.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/infrastructure/postgres"
	"github.com/bomdev/auth-service/internal/password"
	"github.com/bomdev/auth-service/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := postgres.NewPool(ctx, dbURL, postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, migrations.FS); err != nil {
		pool.Close()
		log.Fatalf("migrate: %v", err)
	}

	projectID, err := postgres.Bootstrap(ctx, pool)
	if err != nil {
		pool.Close()
		log.Fatalf("bootstrap: %v", err)
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Default project: %s (id %d)\n", postgres.DefaultProjectName, projectID)

	adminEmail := strings.ToLower(strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL")))
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		fmt.Println("  Admin user:      skipped (set SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD)")
		return
	}

	id, err := seedAdmin(ctx, pool, projectID, adminEmail, adminPassword)
	switch {
	case errors.Is(err, domain.ErrUserExists):
		fmt.Printf("  Admin user:      %s already exists\n", adminEmail)
	case err != nil:
		pool.Close()
		log.Fatalf("seed admin: %v", err)
	default:
		fmt.Printf("  Admin user:      %s (id %d)\n", adminEmail, id)
	}

	fmt.Println()
	fmt.Println("Log in:")
	fmt.Println()
	fmt.Printf("  curl -s -X POST http://localhost:8080/api/v1/auth/login \\\n")
	fmt.Printf("    -H 'Content-Type: application/json' \\\n")
	fmt.Printf("    -d '{\"email\":\"%s\",\"password\":\"...\",\"projectId\":%d}'\n", adminEmail, projectID)
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, projectID int64, emailAddr, plain string) (int64, error) {
	users := postgres.NewUserRepository(pool)
	roles := postgres.NewRoleRepository(pool)

	digest, err := password.NewBcrypt(password.DefaultCost).Hash(plain)
	if err != nil {
		return 0, err
	}

	userRole, err := roles.GetByName(ctx, domain.RoleUser)
	if err != nil {
		return 0, err
	}
	adminRole, err := roles.GetByName(ctx, domain.RoleAdministrator)
	if err != nil {
		return 0, err
	}

	user, err := users.CreateWithRole(ctx, &domain.User{
		ProjectID:      projectID,
		FirstName:      "Admin",
		LastName:       "User",
		Email:          emailAddr,
		PasswordDigest: &digest,
		Enabled:        true,
		EmailConfirmed: true,
	}, userRole.ID)
	if err != nil {
		return 0, err
	}

	if err := users.BindRole(ctx, user.ID, adminRole.ID); err != nil {
		return 0, err
	}
	return user.ID, nil
}
