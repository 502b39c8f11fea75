package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cronobserver/pkg/app"
	pkgMigrations "cronobserver/pkg/migrations"

	// Migration files register themselves via init.
	localMigrations "cronobserver/migrations"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		steps   = flag.Int("steps", 1, "Number of migrations to roll back (down command)")
		name    = flag.String("name", "", "Migration name (create command)")
		dryRun  = flag.Bool("dry-run", false, "Show pending work without executing")
	)
	flag.Parse()

	// Scaffolding works offline; everything else needs the database.
	if *command == "create" {
		if *name == "" {
			log.Fatal("❌ Migration name is required for create")
		}
		if err := scaffoldMigration(*name); err != nil {
			log.Fatalf("❌ Failed to create migration: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	appCtx, err := app.InitializeApp("migrate")
	if err != nil {
		log.Fatalf("❌ Failed to initialize application: %v", err)
	}
	defer appCtx.Shutdown(ctx)

	if appCtx.MongoDB == nil {
		log.Fatal("❌ MongoDB connection is required for migrations")
	}

	runner := pkgMigrations.NewRunner(appCtx.MongoDB.Database)
	localMigrations.RegisterAll(runner)

	switch *command {
	case "up":
		if *dryRun {
			fmt.Println("⚠️  Dry run, nothing will be applied")
			if err := runner.Status(ctx); err != nil {
				log.Fatalf("❌ Failed to show status: %v", err)
			}
			return
		}
		if err := runner.Run(ctx); err != nil {
			log.Fatalf("❌ Migration failed: %v", err)
		}
		fmt.Println("✅ Database is up to date")

	case "down":
		if *dryRun {
			fmt.Println("⚠️  Dry run, nothing will be rolled back")
			if err := runner.Status(ctx); err != nil {
				log.Fatalf("❌ Failed to show status: %v", err)
			}
			return
		}
		if err := runner.Rollback(ctx, *steps); err != nil {
			log.Fatalf("❌ Rollback failed: %v", err)
		}
		fmt.Println("✅ Rollback complete")

	case "status":
		if err := runner.Status(ctx); err != nil {
			log.Fatalf("❌ Failed to get migration status: %v", err)
		}

	default:
		log.Fatalf("❌ Unknown command: %s", *command)
	}
}

// migrationTemplate is the skeleton written by the create command. Files in
// the migrations package self-register through init, so a new file needs no
// registry edit.
const migrationTemplate = `package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

func init() {
	Register(Migration{
		Version:     "%[1]s_%[2]s",
		Description: "TODO: describe %[2]s",
		Up:          up%[1]s,
		Down:        down%[1]s,
	})
}

func up%[1]s(ctx context.Context, db *mongo.Database) error {
	return nil
}

func down%[1]s(ctx context.Context, db *mongo.Database) error {
	return nil
}
`

func scaffoldMigration(name string) error {
	if err := os.MkdirAll("migrations", 0755); err != nil {
		return err
	}

	version := fmt.Sprintf("%03d", nextVersion())
	filename := fmt.Sprintf("migrations/%s_%s.go", version, name)

	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("migration file %s already exists", filename)
	}
	if err := os.WriteFile(filename, []byte(fmt.Sprintf(migrationTemplate, version, name)), 0644); err != nil {
		return err
	}

	fmt.Printf("✅ Created %s\n", filename)
	fmt.Println("📝 Fill in the description and the up/down bodies")
	return nil
}

// nextVersion scans migrations/ for the highest NNN_ prefix.
func nextVersion() int {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		return 1
	}

	highest := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var v int
		if _, err := fmt.Sscanf(entry.Name(), "%03d_", &v); err == nil && v > highest {
			highest = v
		}
	}
	return highest + 1
}
