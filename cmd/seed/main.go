package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/terminal/internal/auth"
	"github.com/kiwari-pos/terminal/internal/config"
	"github.com/kiwari-pos/terminal/internal/database"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

type seedStaff struct {
	name string
	role enum.Role
	pin  string
}

type seedTable struct {
	number   string
	capacity int32
	area     string
}

var defaultStaff = []seedStaff{
	{"Owner Kiwari", enum.RoleOwner, "111111"},
	{"Manajer", enum.RoleManager, "222222"},
	{"Kasir 1", enum.RoleCashier, "333333"},
	{"Pelayan 1", enum.RoleWaiter, "444444"},
	{"Dapur", enum.RoleKitchen, "555555"},
}

var defaultTables = []seedTable{
	{"A1", 4, "Indoor"},
	{"A2", 4, "Indoor"},
	{"A3", 2, "Indoor"},
	{"B1", 6, "Teras"},
	{"B2", 6, "Teras"},
}

func main() {
	// CLI flags
	name := flag.String("name", "", "Business name")
	slug := flag.String("slug", "", "Business slug (defaults to BUSINESS_SLUG)")
	flag.Parse()

	// Fall back to environment variables
	if *name == "" {
		*name = os.Getenv("SEED_BUSINESS_NAME")
	}
	if *name == "" {
		*name = "Kiwari Nasi Bakar"
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *slug == "" {
		*slug = cfg.BusinessSlug
	}

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in a transaction: business, staff and tables or nothing
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := database.New(tx)

	business, err := q.UpsertBusiness(ctx, database.UpsertBusinessParams{Name: *name, Slug: *slug})
	if err != nil {
		log.Fatalf("Failed to seed business: %v", err)
	}
	log.Printf("Business '%s' (ID: %s)", business.Name, business.ID)

	owner, err := seedStaffMembers(ctx, q, business.ID)
	if err != nil {
		log.Fatalf("Failed to seed staff: %v", err)
	}

	if err := seedTables(ctx, q, business, cfg.MenuBaseURL); err != nil {
		log.Fatalf("Failed to seed tables: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed completed successfully")
	fmt.Printf("BUSINESS_ID=%s\n", business.ID)

	// A token for the websocket feed transport and local testing.
	if owner != uuid.Nil {
		token, err := auth.GenerateToken(cfg.JWTSecret, owner, business.ID, enum.RoleOwner, 0)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Printf("FEED_TOKEN=%s\n", token)
	}
}

// seedStaffMembers creates the default staff with PINs, skipping names that
// already exist. It returns the owner's ID.
func seedStaffMembers(ctx context.Context, q *database.Queries, businessID uuid.UUID) (uuid.UUID, error) {
	existing, err := q.ListStaffWithPin(ctx, businessID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list staff: %w", err)
	}
	byName := make(map[string]database.Staff, len(existing))
	for _, s := range existing {
		byName[s.StaffName] = s
	}

	var ownerID uuid.UUID
	for _, s := range defaultStaff {
		if found, ok := byName[s.name]; ok {
			log.Printf("Staff '%s' already exists (ID: %s), skipping", s.name, found.ID)
			if s.role == enum.RoleOwner {
				ownerID = found.ID
			}
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(s.pin), bcrypt.DefaultCost)
		if err != nil {
			return uuid.Nil, fmt.Errorf("hash pin: %w", err)
		}
		created, err := q.CreateStaff(ctx, database.CreateStaffParams{
			BusinessID: businessID,
			StaffName:  s.name,
			Role:       string(s.role),
			PinHash:    pgtype.Text{String: string(hashed), Valid: true},
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert staff %s: %w", s.name, err)
		}
		log.Printf("Created %s '%s' with PIN %s (ID: %s)", s.role, s.name, s.pin, created.ID)
		if s.role == enum.RoleOwner {
			ownerID = created.ID
		}
	}
	return ownerID, nil
}

// seedTables creates the default tables with their menu deep links.
func seedTables(ctx context.Context, q *database.Queries, business database.Business, menuBaseURL string) error {
	existing, err := q.ListTables(ctx, business.ID)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t.TableNumber] = true
	}

	for _, t := range defaultTables {
		if have[t.number] {
			log.Printf("Table '%s' already exists, skipping", t.number)
			continue
		}
		link := domain.TableDeepLink(menuBaseURL, business.Slug, t.number)
		created, err := q.CreateTable(ctx, database.CreateTableParams{
			BusinessID:   business.ID,
			TableNumber:  t.number,
			Capacity:     t.capacity,
			LocationArea: pgtype.Text{String: t.area, Valid: true},
			QrCodeUrl:    pgtype.Text{String: link, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("insert table %s: %w", t.number, err)
		}
		log.Printf("Created table '%s' -> %s (ID: %s)", created.TableNumber, link, created.ID)
	}
	return nil
}
