package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/assettrack/internal/auth"
	"github.com/odyssey-erp/assettrack/internal/platform/db"
	"github.com/odyssey-erp/assettrack/internal/reports"
)

// seedNamespace derives stable row IDs so a second run inserts nothing.
var seedNamespace = uuid.MustParse("6f1c2d0e-5b7a-4c39-9a51-3e8d2f4b7c10")

func seedID(kind, key string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+key))
}

type seeder struct {
	pool     *pgxpool.Pool
	password string
	hashCost int
	logger   *slog.Logger
}

type seedUser struct {
	name, email, role string
}

var seedUsers = []seedUser{
	{"Admin User", "admin@example.com", "Admin"},
	{"John Doe", "john.doe@example.com", "User"},
	{"Jane Smith", "jane.smith@example.com", "User"},
}

type seedSupplier struct {
	name, contact, email, phone, address string
}

var seedSuppliers = []seedSupplier{
	{"TechCorp", "Alice Brown", "alice@techcorp.com", "123-456-7890", "123 Tech St"},
	{"OfficeSupply Co", "Bob White", "bob@officesupply.com", "098-765-4321", "456 Office Ave"},
}

var (
	seedLocations  = []string{"IT Department", "HR Department", "Warehouse"}
	seedCategories = []string{"Laptop", "Printer", "Furniture"}
)

type seedAsset struct {
	name, description   string
	purchased, warranty string
	status              string
	location, category  string
	supplier            string
	claimedByApproval   bool
}

// One asset per status. The printer is Assigned through an approved request.
var seedAssets = []seedAsset{
	{"Dell Laptop", "High-performance laptop", "2023-01-15", "2025-01-15", "Available", "IT Department", "Laptop", "TechCorp", false},
	{"HP Printer", "Color laser printer", "2023-03-10", "2025-03-10", "Assigned", "HR Department", "Printer", "OfficeSupply Co", true},
	{"Office Chair", "Ergonomic chair", "2022-12-01", "2024-12-01", "Available", "Warehouse", "Furniture", "OfficeSupply Co", false},
	{"Epson Projector", "Meeting room projector", "2023-06-01", "", "Under Maintenance", "IT Department", "Printer", "TechCorp", false},
}

type seedRequest struct {
	user, asset, status string
	requested           string
}

// Pending and Rejected requests sit on Available assets; the only Approved
// request accounts for the only Assigned asset.
var seedRequests = []seedRequest{
	{"john.doe@example.com", "Dell Laptop", "Pending", "2025-03-20"},
	{"jane.smith@example.com", "HP Printer", "Approved", "2025-03-21"},
	{"john.doe@example.com", "Office Chair", "Rejected", "2025-03-22"},
}

// Run inserts the demo data set. Existing rows are left untouched.
func (s seeder) Run(ctx context.Context) error {
	s.logger.Info("seeding users")
	hashes := make(map[string]string, len(seedUsers))
	for _, u := range seedUsers {
		hash, err := auth.HashPassword(s.password, s.hashCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.email, err)
		}
		hashes[u.email] = hash
	}

	err := db.WithTx(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, u := range seedUsers {
			if _, err := tx.Exec(ctx, `
				INSERT INTO users (id, name, email, password_hash, role)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT DO NOTHING`, seedID("user", u.email), u.name, u.email, hashes[u.email], u.role); err != nil {
				return db.MapError(err, "seed users")
			}
		}

		s.logger.Info("seeding lookups")
		for _, name := range seedLocations {
			if _, err := tx.Exec(ctx, `INSERT INTO locations (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				seedID("location", name), name); err != nil {
				return db.MapError(err, "seed locations")
			}
		}
		for _, name := range seedCategories {
			if _, err := tx.Exec(ctx, `INSERT INTO categories (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				seedID("category", name), name); err != nil {
				return db.MapError(err, "seed categories")
			}
		}
		for _, sp := range seedSuppliers {
			if _, err := tx.Exec(ctx, `
				INSERT INTO suppliers (id, name, contact_person, email, phone, address)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT DO NOTHING`, seedID("supplier", sp.name), sp.name, sp.contact, sp.email, sp.phone, sp.address); err != nil {
				return db.MapError(err, "seed suppliers")
			}
		}

		s.logger.Info("seeding assets")
		for _, a := range seedAssets {
			purchased, err := time.Parse(time.DateOnly, a.purchased)
			if err != nil {
				return fmt.Errorf("seed asset %s: %w", a.name, err)
			}
			var warranty *time.Time
			if a.warranty != "" {
				w, err := time.Parse(time.DateOnly, a.warranty)
				if err != nil {
					return fmt.Errorf("seed asset %s: %w", a.name, err)
				}
				warranty = &w
			}
			var claimedAt *time.Time
			if a.claimedByApproval {
				now := time.Now().UTC()
				claimedAt = &now
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO assets (id, name, description, purchase_date, warranty_date, status,
				                    location_id, category_id, supplier_id, claimed_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT DO NOTHING`,
				seedID("asset", a.name), a.name, a.description, purchased, warranty, a.status,
				seedID("location", a.location), seedID("category", a.category), seedID("supplier", a.supplier),
				claimedAt); err != nil {
				return db.MapError(err, "seed assets")
			}
		}

		s.logger.Info("seeding requests")
		admin := seedID("user", seedUsers[0].email)
		for _, r := range seedRequests {
			requested, err := time.Parse(time.DateOnly, r.requested)
			if err != nil {
				return fmt.Errorf("seed request for %s: %w", r.asset, err)
			}
			var decidedBy *uuid.UUID
			var decidedAt *time.Time
			if r.status != "Pending" {
				decided := requested.Add(24 * time.Hour)
				decidedBy, decidedAt = &admin, &decided
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO requests (id, user_id, asset_id, request_date, status, decided_by, decided_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT DO NOTHING`,
				seedID("request", r.user+"/"+r.asset), seedID("user", r.user), seedID("asset", r.asset),
				requested, r.status, decidedBy, decidedAt); err != nil {
				return db.MapError(err, "seed requests")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.seedReport(ctx, seedID("user", seedUsers[0].email))
}

// seedReport stores one asset-usage snapshot computed from the seeded rows.
func (s seeder) seedReport(ctx context.Context, admin uuid.UUID) error {
	repo := reports.NewRepository(s.pool)
	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	s.logger.Info("seeding reports")
	_, err = reports.NewService(repo, repo, nil, s.logger).Generate(ctx, reports.TypeAssetUsage, admin)
	return err
}
