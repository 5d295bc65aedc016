package enums

import "fmt"

// SearchSort selects the ordering of availability search results.
type SearchSort string

const (
	SearchSortDistance  SearchSort = "distance"
	SearchSortPriceAsc  SearchSort = "price_asc"
	SearchSortPriceDesc SearchSort = "price_desc"
	SearchSortNewest    SearchSort = "newest"
)

var validSearchSorts = []SearchSort{
	SearchSortDistance,
	SearchSortPriceAsc,
	SearchSortPriceDesc,
	SearchSortNewest,
}

// IsValid reports whether the value matches the canonical search sort enum.
func (s SearchSort) IsValid() bool {
	for _, candidate := range validSearchSorts {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSearchSort converts the raw string to SearchSort. Empty input falls
// back to the newest-first default.
func ParseSearchSort(value string) (SearchSort, error) {
	if value == "" {
		return SearchSortNewest, nil
	}
	for _, candidate := range validSearchSorts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid search sort %q", value)
}
