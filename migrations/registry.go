// Package migrations holds the versioned index migrations applied by
// cmd/migrate at deploy time. Each file registers itself through an init
// func; RegisterAll hands the accumulated set to a runner.
package migrations

import (
	"cronobserver/pkg/migrations"
)

// Migration is the shape each migration file registers.
type Migration struct {
	Version     string
	Description string
	Up          migrations.MigrationFunc
	Down        migrations.MigrationFunc
}

var registry []Migration

// Register records a migration; called from init funcs in this package.
func Register(m Migration) {
	registry = append(registry, m)
}

// RegisterAll feeds every recorded migration to the runner.
func RegisterAll(runner *migrations.Runner) {
	for _, m := range registry {
		runner.Register(migrations.RegisteredMigration{
			Version:     m.Version,
			Description: m.Description,
			Up:          m.Up,
			Down:        m.Down,
		})
	}
}
