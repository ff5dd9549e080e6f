package migrate

import "catmigrate/pkg/catalog"

// CatalogClient defines the catalog API operations the batch loop needs
type CatalogClient interface {
	ListProducts(page, perPage int) ([]catalog.Product, error)
	UpdateProductMeta(productID int64, update *catalog.MetaUpdate) error
}
