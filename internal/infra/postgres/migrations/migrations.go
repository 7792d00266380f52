// Package migrations holds the bun migrations for the quiz schema. Each migration lives in
// its own file so bun can derive the version from the file name.
package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func execMigration(sql string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, sql)
		return err
	}
}
