package migrations

import (
	_ "embed"
)

//go:embed 2025101501_create_catalog.up.sql
var createCatalogSQL string

func init() {
	Migrations.MustRegister(
		execMigration(createCatalogSQL),
		execMigration(`DROP TABLE IF EXISTS questions; DROP TABLE IF EXISTS categories`),
	)
}
