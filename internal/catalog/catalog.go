package catalog

import "context"

// Kind is the asset class, which decides the cache directory and the remote
// lookup namespace.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// Valid reports whether k is a known asset kind.
func (k Kind) Valid() bool {
	return k == KindVideo || k == KindImage
}

// Asset is one filename referenced by an active content record.
type Asset struct {
	Filename string
	Kind     Kind
}

// Catalog is the cache's only view into the content layer: which filenames
// are currently referenced. The cache never reaches into content records.
type Catalog interface {
	// Critical returns the fixed set of video filenames that are eagerly
	// cached at startup and exempt from reconciliation deletion.
	Critical(ctx context.Context) ([]string, error)

	// Assets returns every filename referenced by an active content record.
	Assets(ctx context.Context) ([]Asset, error)
}

// StaticCatalog serves a fixed asset list. Used in tests and in deployments
// that only cache the critical set.
type StaticCatalog struct {
	CriticalAssets []string
	CatalogAssets  []Asset
}

var _ Catalog = &StaticCatalog{}

func (c *StaticCatalog) Critical(ctx context.Context) ([]string, error) {
	return c.CriticalAssets, nil
}

func (c *StaticCatalog) Assets(ctx context.Context) ([]Asset, error) {
	return c.CatalogAssets, nil
}
