package models

import (
	"fmt"
	"strings"
)

// Category is the extension-based classification bucket of a resource.
// Its label doubles as the destination folder name.
type Category int

const (
	CategoryOther Category = iota // Zero value: unrecognized or missing extension
	CategoryMedia
	CategoryImage
	CategoryDocument
)

// AllCategories lists categories in menu order (1=Media ... 4=Other)
var AllCategories = []Category{CategoryMedia, CategoryImage, CategoryDocument, CategoryOther}

var categoryLabels = map[Category]string{
	CategoryMedia:    "Media",
	CategoryImage:    "Image",
	CategoryDocument: "Document",
	CategoryOther:    "Other",
}

// Label returns the display label, which is also the folder name on disk
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return categoryLabels[CategoryOther]
}

// String implements fmt.Stringer for logging
func (c Category) String() string {
	return c.Label()
}

// MenuNumber returns the 1-based number used by the interactive prompt
func (c Category) MenuNumber() int {
	for i, cat := range AllCategories {
		if cat == c {
			return i + 1
		}
	}
	return len(AllCategories)
}

// MarshalYAML writes the label instead of the numeric value
func (c Category) MarshalYAML() (interface{}, error) {
	return c.Label(), nil
}

// ParseCategory accepts a label (case-insensitive) or a menu digit
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryOther, fmt.Errorf("empty category")
	}
	for i, cat := range AllCategories {
		if s == fmt.Sprint(i+1) || strings.EqualFold(s, cat.Label()) {
			return cat, nil
		}
	}
	return CategoryOther, fmt.Errorf("unknown category %q (want one of %s or 1-%d)",
		s, strings.Join(allLabels(), ", "), len(AllCategories))
}

func allLabels() []string {
	labels := make([]string, 0, len(AllCategories))
	for _, c := range AllCategories {
		labels = append(labels, c.Label())
	}
	return labels
}

// CategorySet is the user's selection of categories to download
type CategorySet map[Category]struct{}

// NewCategorySet builds a set from the given categories
func NewCategorySet(cats ...Category) CategorySet {
	set := make(CategorySet, len(cats))
	for _, c := range cats {
		set[c] = struct{}{}
	}
	return set
}

// ParseCategorySet parses a comma-separated list of labels and/or menu digits.
// Unknown entries are returned in invalid rather than failing the whole parse,
// mirroring the prompt which silently ignores bad choices.
func ParseCategorySet(s string) (set CategorySet, invalid []string) {
	set = make(CategorySet)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cat, err := ParseCategory(part)
		if err != nil {
			invalid = append(invalid, part)
			continue
		}
		set[cat] = struct{}{}
	}
	return set, invalid
}

// Contains reports whether c is selected
func (s CategorySet) Contains(c Category) bool {
	_, ok := s[c]
	return ok
}

// Labels returns the selected labels in menu order
func (s CategorySet) Labels() []string {
	labels := make([]string, 0, len(s))
	for _, c := range AllCategories {
		if s.Contains(c) {
			labels = append(labels, c.Label())
		}
	}
	return labels
}
