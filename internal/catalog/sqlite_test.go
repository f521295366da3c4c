package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLCatalog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "content.db")
	critical := []string{"hero1.mp4", "hero2.mp4"}

	cat, err := OpenSQL(dbPath, critical)
	require.NoError(t, err)
	defer func() { _ = cat.Close() }()

	ctx := context.Background()

	got, err := cat.Critical(ctx)
	require.NoError(t, err)
	assert.Equal(t, critical, got)

	assets, err := cat.Assets(ctx)
	require.NoError(t, err)
	assert.Empty(t, assets)

	_, err = cat.db.ExecContext(ctx, `
		INSERT INTO media_assets (filename, kind, active) VALUES
			('gallery7.mp4', 'video', 1),
			('thumb7.jpg', 'image', 1),
			('retired.mp4', 'video', 0)`)
	require.NoError(t, err)

	assets, err = cat.Assets(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Asset{
		{Filename: "gallery7.mp4", Kind: KindVideo},
		{Filename: "thumb7.jpg", Kind: KindImage},
	}, assets, "inactive records must not be referenced")
}

func TestSQLCatalogReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "content.db")

	cat, err := OpenSQL(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, cat.Close())

	// Migrations must be a no-op the second time around.
	cat, err = OpenSQL(dbPath, nil)
	require.NoError(t, err)
	assert.NoError(t, cat.Close())
}
