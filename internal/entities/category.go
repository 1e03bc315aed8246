package entities

import (
	"strconv"
	"strings"
)

// Category is the closed set of news topics the bot can serve.
// The numeric value doubles as the menu number users reply with.
type Category int

const (
	CategoryNone Category = iota
	CategoryGeneral
	CategoryWorld
	CategoryNation
	CategoryBusiness
	CategoryTechnology
	CategorySports
	CategoryEntertainment
	CategoryScience
	CategoryHealth
)

// CategoryDescriptor carries the static data attached to a Category
type CategoryDescriptor struct {
	ID            Category `json:"id"`
	Key           string   `json:"key"`
	DisplayName   string   `json:"display_name"`
	ProviderTopic string   `json:"provider_topic"`
	RegionScope   string   `json:"region_scope,omitempty"` // ISO country code, empty = global
	Aliases       []string `json:"aliases,omitempty"`
}

// categoryTable is ordered by menu position
var categoryTable = []CategoryDescriptor{
	{ID: CategoryGeneral, Key: "general", DisplayName: "General News", ProviderTopic: "general", RegionScope: "in"},
	{ID: CategoryWorld, Key: "world", DisplayName: "World", ProviderTopic: "world"},
	{ID: CategoryNation, Key: "nation", DisplayName: "National", ProviderTopic: "nation", RegionScope: "in", Aliases: []string{"national"}},
	{ID: CategoryBusiness, Key: "business", DisplayName: "Business", ProviderTopic: "business", RegionScope: "in"},
	{ID: CategoryTechnology, Key: "technology", DisplayName: "Technology", ProviderTopic: "technology", Aliases: []string{"tech"}},
	{ID: CategorySports, Key: "sports", DisplayName: "Sports", ProviderTopic: "sports", RegionScope: "in", Aliases: []string{"sport"}},
	{ID: CategoryEntertainment, Key: "entertainment", DisplayName: "Entertainment", ProviderTopic: "entertainment", RegionScope: "in"},
	{ID: CategoryScience, Key: "science", DisplayName: "Science", ProviderTopic: "science"},
	{ID: CategoryHealth, Key: "health", DisplayName: "Health", ProviderTopic: "health", RegionScope: "in"},
}

var regionNames = map[string]string{
	"in": "India",
	"us": "United States",
	"gb": "United Kingdom",
}

// categoryIndex maps every accepted token (number, key, alias) to its category
var categoryIndex = buildCategoryIndex()

func buildCategoryIndex() map[string]Category {
	idx := make(map[string]Category, len(categoryTable)*3)
	for _, d := range categoryTable {
		idx[strconv.Itoa(int(d.ID))] = d.ID
		idx[d.Key] = d.ID
		for _, alias := range d.Aliases {
			idx[alias] = d.ID
		}
	}
	return idx
}

// Descriptor returns the static data for c. The second value is false for
// CategoryNone or any value outside the table.
func (c Category) Descriptor() (CategoryDescriptor, bool) {
	if c <= CategoryNone || int(c) > len(categoryTable) {
		return CategoryDescriptor{}, false
	}
	return categoryTable[c-1], true
}

// String returns the category key
func (c Category) String() string {
	if d, ok := c.Descriptor(); ok {
		return d.Key
	}
	return "none"
}

// CategoryByKey resolves a menu number, key or alias. Lookup is exact, callers
// are expected to pass normalized (lowercase) tokens.
func CategoryByKey(key string) (CategoryDescriptor, bool) {
	c, ok := categoryIndex[key]
	if !ok {
		return CategoryDescriptor{}, false
	}
	return c.Descriptor()
}

// AllCategories returns the categories in menu order
func AllCategories() []CategoryDescriptor {
	out := make([]CategoryDescriptor, len(categoryTable))
	copy(out, categoryTable)
	return out
}

// IsGlobal reports whether the category has no regional filter
func (d CategoryDescriptor) IsGlobal() bool {
	return d.RegionScope == ""
}

// ScopeLabel is the human readable region annotation, e.g. "India" or "Global"
func (d CategoryDescriptor) ScopeLabel() string {
	if d.IsGlobal() {
		return "Global"
	}
	if name, ok := regionNames[d.RegionScope]; ok {
		return name
	}
	return strings.ToUpper(d.RegionScope)
}
