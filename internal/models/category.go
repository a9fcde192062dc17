package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCategory is returned when a category identifier is not one of the fixed six.
var ErrUnknownCategory = errors.New("unknown category")

type Category string

const (
	CategoryRelationships Category = "relationships"
	CategorySchool        Category = "school"
	CategoryWork          Category = "work"
	CategoryEmotional     Category = "emotional"
	CategoryLife          Category = "life"
	CategoryUpskilling    Category = "upskilling"
)

// Categories is the closed, ordered set of categories every day record carries.
var Categories = []Category{
	CategoryRelationships,
	CategorySchool,
	CategoryWork,
	CategoryEmotional,
	CategoryLife,
	CategoryUpskilling,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory parses a category identifier, ignoring case and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}
