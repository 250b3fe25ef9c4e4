package client

import (
	"regexp"
	"strings"

	"github.com/dpshade/permahub/internal/filter"
)

// Intent is what a caller wants, without protocol details.
type Intent struct {
	// ID requests one event by id. Takes precedence over Query.
	ID string
	// Query is free text; it may also be an id or name a category.
	Query string
	// Kinds restricts the event kinds, when set.
	Kinds []string
	// Limit caps the result; zero means the client default.
	Limit int
}

// Categories recognized in free text, in match priority order.
var Categories = []string{"profile", "preference", "knowledge", "task", "contact", "process"}

// categoryWords maps query words to a category.
var categoryWords = map[string]string{
	"profile": "profile", "profiles": "profile", "bio": "profile",
	"preference": "preference", "preferences": "preference", "prefer": "preference", "likes": "preference",
	"knowledge": "knowledge", "fact": "knowledge", "facts": "knowledge",
	"task": "task", "tasks": "task", "todo": "task", "todos": "task",
	"contact": "contact", "contacts": "contact",
	"process": "process", "processes": "process", "workflow": "process", "workflows": "process",
}

var (
	uuidPattern   = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	base64Pattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)
)

// LooksLikeID reports whether s has the shape of an event id.
func LooksLikeID(s string) bool {
	return uuidPattern.MatchString(s) || base64Pattern.MatchString(s)
}

// DetectCategory returns the highest-priority category named by a word
// in query.
func DetectCategory(query string) (string, bool) {
	found := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if cat, ok := categoryWords[word]; ok {
			found[cat] = true
		}
	}
	for _, cat := range Categories {
		if found[cat] {
			return cat, true
		}
	}
	return "", false
}

// BuildFilters turns intent into a one-clause filter set. defaultLimit
// applies when intent.Limit is zero.
func BuildFilters(intent Intent, defaultLimit int) filter.FilterSet {
	id := intent.ID
	query := strings.TrimSpace(intent.Query)
	if id == "" && LooksLikeID(query) {
		id = query
	}
	if id != "" {
		return filter.FilterSet{{IDs: []string{id}, Kinds: intent.Kinds, Limit: 1}}
	}

	limit := intent.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if cat, ok := DetectCategory(query); ok {
		return filter.FilterSet{{Kinds: intent.Kinds, Tags: map[string][]string{"category": {cat}}, Limit: limit}}
	}
	return filter.FilterSet{{Kinds: intent.Kinds, Search: query, Limit: limit}}
}
