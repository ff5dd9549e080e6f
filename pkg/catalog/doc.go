// Package catalog provides a client for a WooCommerce-style products API.
//
// This package includes:
//   - An HTTP client with basic auth and typed error handling
//   - Models for products and their free-form metadata entries
//   - Helper functions for constructing paginated endpoint URLs
//
// Listings are always requested in ascending id order so that callers
// can resume a partially processed page from a known item id.
//
// Example usage:
//
//	client := catalog.NewClient(baseURL, consumerKey, consumerSecret, 30*time.Second, log)
//
//	products, err := client.ListProducts(1, 20)
//	if err != nil {
//	    var apiErr *errors.Error
//	    if stderrors.As(err, &apiErr) {
//	        switch apiErr.Type {
//	        case errors.ErrorTypeAuth:
//	            // Handle authentication error
//	        case errors.ErrorTypeRateLimit:
//	            // Handle rate limit
//	        }
//	    }
//	}
//
//	err = client.UpdateProductMeta(101, catalog.NewMetaUpdate("product_images_url", urls))
package catalog
