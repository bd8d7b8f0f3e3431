// Package filter narrows a product list down by tag and search term.
// It performs no I/O and never modifies its input.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abgdnv/producttags/internal/model"
	"github.com/abgdnv/producttags/internal/service"
)

// TagFilter selects products by tag. AllTags matches every product.
type TagFilter int

// AllTags is the wire value meaning "do not filter by tag".
const AllTags TagFilter = -2

// ErrInvalidTagFilter is returned for a tag query that is neither a tag nor AllTags.
var ErrInvalidTagFilter = errors.New("invalid tag filter")

// Criteria is a tag filter combined with a free-text search.
type Criteria struct {
	Tag    TagFilter
	Search string
}

// Only returns a filter matching exactly one tag.
func Only(tag model.Tag) TagFilter {
	return TagFilter(tag)
}

// Matches reports whether the filter accepts tag.
func (f TagFilter) Matches(tag model.Tag) bool {
	return f == AllTags || model.Tag(f) == tag
}

// String returns the query parameter form of the filter.
func (f TagFilter) String() string {
	return strconv.Itoa(int(f))
}

// IsZero reports whether the criteria would keep every product.
func (c Criteria) IsZero() bool {
	return c.Tag == AllTags && strings.TrimSpace(c.Search) == ""
}

// ParseCriteria builds Criteria from raw query values.
// An empty tag or "-2" selects all tags; other values must be a valid tag.
func ParseCriteria(tag, search string) (Criteria, error) {
	c := Criteria{Tag: AllTags, Search: strings.TrimSpace(search)}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return c, nil
	}
	n, err := strconv.Atoi(tag)
	if err != nil {
		return Criteria{}, fmt.Errorf("%w: %q", ErrInvalidTagFilter, tag)
	}
	f := TagFilter(n)
	if f != AllTags && !model.Tag(n).Valid() {
		return Criteria{}, fmt.Errorf("%w: %d", ErrInvalidTagFilter, n)
	}
	c.Tag = f
	return c, nil
}

// Apply returns the products matching c, in input order.
// The search term matches a case-insensitive substring of the name
// or a substring of the decimal external ID.
func Apply(products []service.ProductDto, c Criteria) []service.ProductDto {
	term := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]service.ProductDto, 0, len(products))
	for _, p := range products {
		if !c.Tag.Matches(p.Tag) {
			continue
		}
		if term != "" && !matchesSearch(p, term) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesSearch(p service.ProductDto, term string) bool {
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strconv.FormatInt(p.ExternalID, 10), term)
}
