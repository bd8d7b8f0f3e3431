// Package model holds the product entity shared by the store, service and presentation layers.
package model

import (
	"fmt"
	"time"
)

// Tag is the classification assigned to a product.
type Tag int

const (
	TagUnclassified Tag = -1
	TagStandard     Tag = 0
	TagFolded       Tag = 1
)

// Tags lists every valid tag in display order.
var Tags = []Tag{TagUnclassified, TagStandard, TagFolded}

// Valid reports whether t is one of the enumerated tags.
func (t Tag) Valid() bool {
	return t == TagUnclassified || t == TagStandard || t == TagFolded
}

// String returns the human-readable label of the tag.
func (t Tag) String() string {
	switch t {
	case TagUnclassified:
		return "Unclassified"
	case TagStandard:
		return "Standard"
	case TagFolded:
		return "Folded"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// MaxNameLength is the maximum number of characters in a product name.
const MaxNameLength = 200

// Product is a stored product record.
type Product struct {
	ID         string
	ExternalID int64
	Name       string
	Tag        Tag
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
