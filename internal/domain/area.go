package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// AreaCategory enumerates the kinds of places an area can describe.
type AreaCategory int

const (
	AreaCategoryUnknown   AreaCategory = -1
	AreaCategoryRoom      AreaCategory = 0
	AreaCategoryApartment AreaCategory = 1
	AreaCategoryHouse     AreaCategory = 2
	AreaCategoryOffice    AreaCategory = 3
)

var areaCategoryNames = map[AreaCategory]string{
	AreaCategoryRoom:      "Room",
	AreaCategoryApartment: "Apartment",
	AreaCategoryHouse:     "House",
	AreaCategoryOffice:    "Office",
}

// String returns the display name, or "unknown".
func (c AreaCategory) String() string {
	if name, ok := areaCategoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether c is one of the predefined categories.
func (c AreaCategory) Valid() bool {
	_, ok := areaCategoryNames[c]
	return ok
}

// ParseAreaCategory accepts either the numeric key or the display name.
func ParseAreaCategory(raw string) AreaCategory {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if c := AreaCategory(n); c.Valid() {
			return c
		}
		return AreaCategoryUnknown
	}
	for c, name := range areaCategoryNames {
		if strings.EqualFold(name, raw) {
			return c
		}
	}
	return AreaCategoryUnknown
}

// AreaCategories returns the predefined categories in key order.
func AreaCategories() []AreaCategory {
	out := make([]AreaCategory, 0, len(areaCategoryNames))
	for c := range areaCategoryNames {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Area is a place owned by a single user.
type Area struct {
	ID            string
	OwnerID       string
	Name          string
	Category      AreaCategory
	Location      string
	LocationPoint []float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
