// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/account"
	"pharmacore/internal/domain/auth"
	"pharmacore/internal/infrastructure/storage/postgres"
	"pharmacore/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Connect to database
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedVaultAccount(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed vault account", "error", err)
	}

	if err := seedAdminUser(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	// Seed demo data if requested
	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedVaultAccount creates the singleton cash vault row. Every money
// movement in the system posts against this account.
func seedVaultAccount(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	tag, err := pool.Pool.Exec(ctx, `
		INSERT INTO acc_accounts (id, code, name, balance, deletion_mark, version)
		VALUES ($1, $2, $3, 0, false, 1)
		ON CONFLICT (code) DO NOTHING
	`, id.New(), account.VaultCode, "Cash Vault")
	if err != nil {
		return fmt.Errorf("insert vault account: %w", err)
	}

	if tag.RowsAffected() == 0 {
		log.Info("vault account already exists")
		return nil
	}

	log.Infow("vault account created", "code", account.VaultCode)
	return nil
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@pharmacore.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	// Check if admin already exists
	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1 AND deleted_at IS NULL`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin exists: %w", err)
	}

	// Hash password
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()
	now := time.Now().UTC()

	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name,
			roles, is_active, version, created_at, updated_at
		) VALUES ($1, $2, $3, 'System', 'Admin', $4, true, 1, $5, $5)
	`, userID, adminEmail, string(passwordHash), []string{auth.RoleAdmin}, now)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	log.Infow("admin user created",
		"email", adminEmail,
		"user_id", userID,
	)
	return nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding demo data...")

	// 1. Medicines. Prices in minor units, quantities scaled.
	medicines := []struct {
		name          string
		barcode       string
		manufacturer  string
		minAlert      float64
		purchasePrice types.MinorUnits
		salePrice     types.MinorUnits
	}{
		{"Paracetamol 500mg (20 tab)", "5900000000017", "Polpharma", 30, 250, 450},
		{"Ibuprofen 200mg (30 tab)", "5900000000024", "Hasco-Lek", 20, 480, 790},
		{"Amoxicillin 500mg (16 cap)", "5900000000031", "Sandoz", 10, 1150, 1890},
		{"Vitamin C 1000mg (60 tab)", "5900000000048", "Olimp Labs", 15, 900, 1590},
		{"Loratadine 10mg (10 tab)", "5900000000055", "Teva", 10, 520, 990},
		{"Saline spray 100ml", "5900000000062", "Aflofarm", 25, 700, 1290},
	}

	for i, m := range medicines {
		code := fmt.Sprintf("MED-%05d", i+1)
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_medicines (
				id, code, name, barcode, manufacturer,
				min_alert_quantity, default_purchase_price, default_sale_price,
				deletion_mark, version, attributes
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, 1, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, id.New(), code, m.name, m.barcode, m.manufacturer,
			types.NewQuantityFromFloat64(m.minAlert), m.purchasePrice, m.salePrice)
		if err != nil {
			log.Warnw("failed to seed medicine", "name", m.name, "error", err)
		}
	}

	// 2. Suppliers
	suppliers := []struct {
		name    string
		phone   string
		contact string
	}{
		{"MedSupply Wholesale Ltd", "+48221000100", "Anna Kowalska"},
		{"PharmaDirect Distribution", "+48221000200", "Piotr Nowak"},
	}

	for i, s := range suppliers {
		code := fmt.Sprintf("SUP-%03d", i+1)
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_suppliers (id, code, name, phone, contact_person, balance, deletion_mark, version)
			VALUES ($1, $2, $3, $4, $5, 0, false, 1)
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, id.New(), code, s.name, s.phone, s.contact)
		if err != nil {
			log.Warnw("failed to seed supplier", "name", s.name, "error", err)
		}
	}

	// 3. Customers. A credit limit of zero means cash only.
	customers := []struct {
		name        string
		phone       string
		creditLimit types.MinorUnits
	}{
		{"City Clinic Sp. z o.o.", "+48221000300", 500_00},
		{"Sunrise Care Home", "+48221000400", 250_00},
		{"Jan Wisniewski", "+48501000500", 0},
	}

	for i, c := range customers {
		code := fmt.Sprintf("CUS-%03d", i+1)
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_customers (id, code, name, phone, balance, credit_limit, deletion_mark, version)
			VALUES ($1, $2, $3, $4, 0, $5, false, 1)
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, id.New(), code, c.name, c.phone, c.creditLimit)
		if err != nil {
			log.Warnw("failed to seed customer", "name", c.name, "error", err)
		}
	}

	log.Info("demo data seeded successfully")
	return nil
}
