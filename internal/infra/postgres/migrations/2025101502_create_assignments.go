package migrations

import (
	_ "embed"
)

//go:embed 2025101502_create_assignments.up.sql
var createAssignmentsSQL string

func init() {
	Migrations.MustRegister(
		execMigration(createAssignmentsSQL),
		execMigration(`DROP TABLE IF EXISTS results; DROP TABLE IF EXISTS assignment_questions; DROP TABLE IF EXISTS assignments`),
	)
}
