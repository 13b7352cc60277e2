package ebay

import (
	"regexp"
	"strings"

	"github.com/matthewgall/epicdeals/internal/models"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// QueryTokens splits a query into lowercase alphanumeric words.
func QueryTokens(query string) []string {
	return strings.Fields(nonAlphanumeric.ReplaceAllString(strings.ToLower(query), " "))
}

func compact(title string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "")
}

// FilterByTitle keeps listings whose compacted title contains every query
// token, in any order.
func FilterByTitle(items []models.Listing, query string) []models.Listing {
	tokens := QueryTokens(query)
	if len(tokens) == 0 {
		return items
	}

	kept := make([]models.Listing, 0, len(items))
	for _, item := range items {
		title := compact(item.Title)
		matched := true
		for _, token := range tokens {
			if !strings.Contains(title, token) {
				matched = false
				break
			}
		}
		if matched {
			kept = append(kept, item)
		}
	}
	return kept
}

// ExcludeNew drops listings whose condition label starts with "new".
func ExcludeNew(items []models.Listing) []models.Listing {
	kept := make([]models.Listing, 0, len(items))
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(item.Condition)), "new") {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// PostFilter applies the title filter and then drops new listings, whatever
// condition facet was requested upstream.
func PostFilter(items []models.Listing, query string) []models.Listing {
	return ExcludeNew(FilterByTitle(items, query))
}

// CompoundQuery joins the first two words of a multi-word query, so
// "link buds" becomes "linkbuds". ok is false for single-word queries.
func CompoundQuery(query string) (string, bool) {
	words := strings.Fields(query)
	if len(words) < 2 {
		return "", false
	}
	joined := append([]string{words[0] + words[1]}, words[2:]...)
	return strings.Join(joined, " "), true
}
