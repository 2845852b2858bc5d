package domain

import "strings"

// Filter is the active listing view: a category selects what is fetched,
// the search term narrows what is shown.
type Filter struct {
	Category string `json:"category"`
	Search   string `json:"search"`
}

func (f Filter) InCategory(e CatalogEntry) bool {
	return IsAllCategories(f.Category) || e.Category == f.Category
}

// MatchesSearch is a case-insensitive substring match on the title.
func (f Filter) MatchesSearch(e CatalogEntry) bool {
	if f.Search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Title), strings.ToLower(f.Search))
}
