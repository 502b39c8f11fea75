// Package migrations tracks schema changes in a _migrations collection and
// applies registered Up/Down functions in version order.
package migrations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MigrationFunc applies or rolls back one migration against the database.
type MigrationFunc func(ctx context.Context, db *mongo.Database) error

// RegisteredMigration pairs a version with its apply and rollback functions.
// Down may be nil for migrations that cannot be reversed.
type RegisteredMigration struct {
	Version     string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// appliedRecord is one row in the _migrations bookkeeping collection.
type appliedRecord struct {
	Version     string    `bson:"version"`
	Description string    `bson:"description"`
	AppliedAt   time.Time `bson:"applied_at"`
	Checksum    string    `bson:"checksum"`
}

// Runner applies registered migrations against one database.
type Runner struct {
	db         *mongo.Database
	collection *mongo.Collection
	migrations []RegisteredMigration
}

// NewRunner creates a runner recording state in the _migrations collection.
func NewRunner(db *mongo.Database) *Runner {
	return &Runner{db: db, collection: db.Collection("_migrations")}
}

// Register adds a migration. Registration order does not matter; the runner
// sorts by version before applying.
func (r *Runner) Register(m RegisteredMigration) {
	r.migrations = append(r.migrations, m)
}

func (r *Runner) ordered() []RegisteredMigration {
	out := make([]RegisteredMigration, len(r.migrations))
	copy(out, r.migrations)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// Run applies every pending migration in version order.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.ensureVersionIndex(ctx); err != nil {
		return fmt.Errorf("failed to create migrations index: %w", err)
	}

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load applied migrations: %w", err)
	}

	done := make(map[string]struct{}, len(applied))
	for _, rec := range applied {
		done[rec.Version] = struct{}{}
	}

	for _, m := range r.ordered() {
		if _, ok := done[m.Version]; ok {
			continue
		}
		if err := r.applyOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) applyOne(ctx context.Context, m RegisteredMigration) error {
	fmt.Printf("🔄 Applying %s: %s\n", m.Version, m.Description)

	err := r.withSession(ctx, func(sc mongo.SessionContext) error {
		if err := m.Up(sc, r.db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Version, err)
		}
		rec := appliedRecord{
			Version:     m.Version,
			Description: m.Description,
			AppliedAt:   time.Now().UTC(),
			Checksum:    checksum(m),
		}
		if _, err := r.collection.InsertOne(sc, rec); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("✅ Applied %s\n", m.Version)
	return nil
}

// Rollback reverses the most recent n applied migrations. Migrations without
// a Down function are skipped with a warning.
func (r *Runner) Rollback(ctx context.Context, steps int) error {
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load applied migrations: %w", err)
	}
	if steps > len(applied) {
		steps = len(applied)
	}

	byVersion := make(map[string]RegisteredMigration, len(r.migrations))
	for _, m := range r.migrations {
		byVersion[m.Version] = m
	}

	for i := len(applied) - 1; i >= len(applied)-steps; i-- {
		version := applied[i].Version
		m, ok := byVersion[version]
		if !ok {
			return fmt.Errorf("applied migration %s is not registered", version)
		}
		if m.Down == nil {
			fmt.Printf("⚠️  %s has no rollback, skipping\n", version)
			continue
		}
		if err := r.rollbackOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) rollbackOne(ctx context.Context, m RegisteredMigration) error {
	fmt.Printf("🔄 Rolling back %s\n", m.Version)

	err := r.withSession(ctx, func(sc mongo.SessionContext) error {
		if err := m.Down(sc, r.db); err != nil {
			return fmt.Errorf("rollback %s failed: %w", m.Version, err)
		}
		if _, err := r.collection.DeleteOne(sc, bson.M{"version": m.Version}); err != nil {
			return fmt.Errorf("failed to remove migration record %s: %w", m.Version, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("✅ Rolled back %s\n", m.Version)
	return nil
}

// Status prints each registered migration with its applied state.
func (r *Runner) Status(ctx context.Context) error {
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load applied migrations: %w", err)
	}

	byVersion := make(map[string]appliedRecord, len(applied))
	for _, rec := range applied {
		byVersion[rec.Version] = rec
	}

	fmt.Println("\n📊 Migration status")
	fmt.Println(strings.Repeat("-", 72))
	for _, m := range r.ordered() {
		if rec, ok := byVersion[m.Version]; ok {
			fmt.Printf("✅ %s  %s (applied %s)\n", m.Version, m.Description, rec.AppliedAt.Format(time.RFC3339))
		} else {
			fmt.Printf("⏳ %s  %s\n", m.Version, m.Description)
		}
	}
	fmt.Printf("\n%d registered, %d applied, %d pending\n",
		len(r.migrations), len(applied), len(r.migrations)-len(applied))
	return nil
}

// withSession runs fn in a MongoDB session that is ended before returning,
// so long runs do not accumulate server sessions.
func (r *Runner) withSession(ctx context.Context, fn func(mongo.SessionContext) error) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)
	return mongo.WithSession(ctx, session, fn)
}

func (r *Runner) ensureVersionIndex(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "version", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *Runner) appliedVersions(ctx context.Context) ([]appliedRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "version", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []appliedRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// checksum fingerprints a migration so later edits to an applied version are
// detectable.
func checksum(m RegisteredMigration) string {
	sum := sha256.Sum256([]byte(m.Version + "\x00" + m.Description))
	return hex.EncodeToString(sum[:])
}
