package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"schoolRecords/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

func OpenDB(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	dsn := cfg.URI
	if cfg.Driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		// SQLite serialises writers; one connection avoids "database is locked".
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// sqliteDSN turns foreign keys on for every connection the pool opens.
func sqliteDSN(uri string) string {
	if strings.Contains(uri, "_foreign_keys=") || strings.Contains(uri, "_fk=") {
		return uri
	}
	if strings.Contains(uri, "?") {
		return uri + "&_foreign_keys=on"
	}
	return uri + "?_foreign_keys=on"
}
