package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLCatalog reads referenced filenames from the site's content records.
//
// The media_assets table is maintained by the CMS side; the cache only reads
// it. The critical set comes from configuration, not the table, so it
// survives catalog edits.
type SQLCatalog struct {
	db       *sql.DB
	critical []string
}

var _ Catalog = &SQLCatalog{}

// OpenSQL opens the content database and applies pending schema migrations.
func OpenSQL(path string, critical []string) (*SQLCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLCatalog{db: db, critical: critical}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

func (c *SQLCatalog) Critical(ctx context.Context) ([]string, error) {
	return c.critical, nil
}

func (c *SQLCatalog) Assets(ctx context.Context) ([]Asset, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT DISTINCT filename, kind FROM media_assets WHERE active = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to query media assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.Filename, &a.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan media asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// Close closes the underlying database.
func (c *SQLCatalog) Close() error {
	return c.db.Close()
}
