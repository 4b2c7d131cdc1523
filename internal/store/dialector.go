package store

import (
	"database/sql"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// cgoSqliteDialector opens a local file with the cgo-backed driver (the
// teacher's default). Kept in its own function so a pure-Go build can swap
// this one call for glebarez/sqlite without touching Connect's control flow.
func cgoSqliteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(dsn)
}

// sqliteDialectorFromConn drives an already-open *sql.DB (the libsql
// connector) through gorm's sqlite dialector, exactly as db/sqlite.go does
// for Turso DSNs.
func sqliteDialectorFromConn(conn *sql.DB, dsn string) gorm.Dialector {
	return sqlite.New(sqlite.Config{
		DriverName: "libsql",
		Conn:       conn,
		DSN:        dsn,
	})
}
