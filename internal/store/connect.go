package store

import (
	"database/sql"
	"database/sql/driver"
	"os"
	"path/filepath"
	"strings"

	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	glebarezsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codegraph/codegraph/internal/errkind"
)

// ConnectOptions configures a database connection.
type ConnectOptions struct {
	DSN       string
	Debug     bool
	PureGo    bool // force the cgo-free glebarez driver instead of mattn/go-sqlite3 via gorm.io/driver/sqlite
	AuthToken string
}

// Connect opens the database, applies connection pragmas, and runs pending
// migrations. Mirrors the teacher's db.Connect: cgo sqlite for local files,
// a pure-Go fallback, or a libsql remote DSN for Turso.
func Connect(opts ConnectOptions) (*gorm.DB, error) {
	if !isRemoteDSN(opts.DSN) {
		dir := filepath.Dir(opts.DSN)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errkind.Wrap(errkind.StorageError, "failed to create database directory", err)
			}
		}
	}

	gormCfg := &gorm.Config{}
	if opts.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	dialector, conn, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, errkind.Wrap(errkind.StorageError, "failed to open database", err)
	}

	if err := applyPragmas(db); err != nil {
		return nil, err
	}
	if err := Migrate(db, opts.DSN); err != nil {
		return nil, errkind.Wrap(errkind.MigrationFailed, "migration failed", err)
	}
	return db, nil
}

func dialectorFor(opts ConnectOptions) (gorm.Dialector, *sql.DB, error) {
	if isRemoteDSN(opts.DSN) {
		token := opts.AuthToken
		if token == "" {
			token = os.Getenv("CODEGRAPH_LIBSQL_AUTH_TOKEN")
		}
		var (
			connector driver.Connector
			err       error
		)
		if token != "" {
			connector, err = libsql.NewConnector(opts.DSN, libsql.WithAuthToken(token))
		} else {
			connector, err = libsql.NewConnector(opts.DSN)
		}
		if err != nil {
			return nil, nil, errkind.Wrap(errkind.StorageError, "failed to create libsql connector", err)
		}
		conn := sql.OpenDB(connector)
		// gorm.io/driver/sqlite can drive an already-open *sql.DB regardless of
		// whether cgo is enabled, so libsql reuses it as the dialector driver.
		return sqliteDialectorFromConn(conn, opts.DSN), conn, nil
	}

	if opts.PureGo {
		return glebarezsqlite.Open(opts.DSN), nil, nil
	}
	return cgoSqliteDialector(opts.DSN), nil, nil
}

func isRemoteDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "http://") || strings.HasPrefix(dsn, "https://") || strings.HasPrefix(dsn, "libsql://")
}

func applyPragmas(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errkind.Wrap(errkind.StorageError, "failed to get underlying sql.DB", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA mmap_size = 268435456",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		// Pragmas fail harmlessly on non-SQLite (libsql remote) backends;
		// a failure here is not fatal to opening the connection.
		sqlDB.Exec(p)
	}
	return nil
}
