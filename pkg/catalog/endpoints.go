package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPerPage is the default page size for product listings
	DefaultPerPage = 20

	// MaxPerPage is the largest page size the products endpoint accepts
	MaxPerPage = 100
)

// ListURL constructs the URL for fetching one page of products.
// Results are pinned to ascending id order so that resume checkpoints
// stay meaningful across runs.
func ListURL(baseURL string, page, perPage int) string {
	if perPage <= 0 {
		perPage = DefaultPerPage
	} else if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	params.Set("orderby", "id")
	params.Set("order", "asc")

	return fmt.Sprintf("%s?%s", strings.TrimRight(baseURL, "/"), params.Encode())
}

// ProductURL constructs the URL for a single product
func ProductURL(baseURL string, productID int64) string {
	return fmt.Sprintf("%s/%d", strings.TrimRight(baseURL, "/"), productID)
}
