package orders

import (
	"database/sql"

	"github.com/fjod/storefront/internal/sqlitedb"
)

const sqliteMigrationsTable = "schema_migrations_orders"

// NewSQLiteLedger stores orders next to the catalog. The caller owns db, so
// Close on this ledger leaves it open.
func NewSQLiteLedger(db *sql.DB, migrationsPath string) (Ledger, error) {
	if err := sqlitedb.RunMigrations(db, migrationsPath, sqliteMigrationsTable); err != nil {
		return nil, err
	}
	return &sqlLedger{db: db}, nil
}
