package model

import "strings"

// Category tags a poll. The set is closed and fixed at compile time.
type Category string

const (
	CategoryTechnology    Category = "technology"
	CategoryEducation     Category = "education"
	CategoryEntertainment Category = "entertainment"
	CategoryCollegeLife   Category = "college_life"
	CategorySports        Category = "sports"

	// CategoryAll is a filter value meaning "no filter". It is never stored.
	CategoryAll Category = "all"

	DefaultCategory = CategoryTechnology
)

// CategoryChoice pairs a category with its display label.
type CategoryChoice struct {
	Value Category `json:"value"`
	Label string   `json:"label"`
}

var categoryChoices = [...]CategoryChoice{
	{Value: CategoryTechnology, Label: "Technology"},
	{Value: CategoryEducation, Label: "Education"},
	{Value: CategoryEntertainment, Label: "Entertainment"},
	{Value: CategoryCollegeLife, Label: "College Life"},
	{Value: CategorySports, Label: "Sports"},
}

// Categories returns the storable categories in display order.
func Categories() []CategoryChoice {
	out := make([]CategoryChoice, len(categoryChoices))
	copy(out[:], categoryChoices[:])
	return out
}

// FilterChoices returns Categories prefixed with the "all" pseudo-category.
func FilterChoices() []CategoryChoice {
	return append([]CategoryChoice{{Value: CategoryAll, Label: "All"}}, Categories()...)
}

// Valid reports whether c is a storable category.
func (c Category) Valid() bool {
	for _, choice := range categoryChoices {
		if choice.Value == c {
			return true
		}
	}
	return false
}

// Label returns the display label, or the raw value for unknown categories.
func (c Category) Label() string {
	for _, choice := range categoryChoices {
		if choice.Value == c {
			return choice.Label
		}
	}
	return string(c)
}

// ParseCategory normalizes user input. Empty input yields DefaultCategory.
func ParseCategory(raw string) (Category, bool) {
	value := Category(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return DefaultCategory, true
	}
	return value, value.Valid()
}

// ParseFilter normalizes a list filter. Empty input and "all" yield CategoryAll.
func ParseFilter(raw string) (Category, bool) {
	value := Category(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" || value == CategoryAll {
		return CategoryAll, true
	}
	return value, value.Valid()
}
