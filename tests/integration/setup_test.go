package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sweetmart/sweetmart/internal/models"
	"github.com/sweetmart/sweetmart/internal/store"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

// seedUser creates an account with a unique email and token derived from
// the label.
func seedUser(t *testing.T, db *sql.DB, label string, role models.Role) *models.User {
	t.Helper()

	user, err := store.CreateUser(context.Background(), db,
		label+"@example.com", label, role, "token-"+label)
	if err != nil {
		t.Fatalf("Seed user %s: %v", label, err)
	}
	return user
}

// seedSweet creates a catalog entry owned by creator with the given price
// and stock.
func seedSweet(t *testing.T, db *sql.DB, creator *models.User, name string, price int64, quantity int) *models.Sweet {
	t.Helper()

	sweet, err := store.CreateSweet(context.Background(), db, store.CreateSweetRequest{
		Name:        name,
		Description: "Test sweet " + name,
		Category:    models.CategoryChocolate,
		Price:       decimal.NewFromInt(price),
		ImageURL:    "https://example.com/" + name + ".jpg",
		Ingredients: []string{"sugar", "cocoa"},
		Quantity:    quantity,
		CreatedBy:   creator.ID,
	})
	if err != nil {
		t.Fatalf("Seed sweet %s: %v", name, err)
	}
	return sweet
}

// sweetQuantity reads the live stock level straight from the table.
func sweetQuantity(t *testing.T, db *sql.DB, sweetID int64) int {
	t.Helper()

	var quantity int
	err := db.QueryRow(`SELECT quantity FROM sweets WHERE id = $1`, sweetID).Scan(&quantity)
	if err != nil {
		t.Fatalf("Read sweet quantity: %v", err)
	}
	return quantity
}
