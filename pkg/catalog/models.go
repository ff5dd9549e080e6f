package catalog

import "encoding/json"

// Meta is a single metadata entry on a product. Value is left untyped
// because stores write anything from plain strings to JSON arrays into it.
type Meta struct {
	ID    int64       `json:"id,omitempty"`
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Product represents one catalog item as returned by the products endpoint
type Product struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Sku      string `json:"sku,omitempty"`
	Status   string `json:"status,omitempty"`
	MetaData []Meta `json:"meta_data"`
}

// MetaValue returns the value of the first metadata entry with the given key
func (p *Product) MetaValue(key string) (interface{}, bool) {
	for _, m := range p.MetaData {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// MetaUpdate is the partial update body for a product's metadata
type MetaUpdate struct {
	MetaData []Meta `json:"meta_data"`
}

// NewMetaUpdate builds an update body setting a single metadata key
func NewMetaUpdate(key string, value interface{}) *MetaUpdate {
	return &MetaUpdate{
		MetaData: []Meta{{Key: key, Value: value}},
	}
}

// Encode marshals the update body to JSON
func (u *MetaUpdate) Encode() ([]byte, error) {
	return json.Marshal(u)
}
