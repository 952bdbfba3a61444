package ranking

import "strings"

var queryAliases = map[string][]string{
	"js":         {"javascript"},
	"javascript": {"js"},
	"ts":         {"typescript"},
	"typescript": {"ts"},
	"node":       {"nodejs", "node.js"},
	"nodejs":     {"node", "node.js"},
	"react":      {"reactjs", "react.js"},
	"reactjs":    {"react", "react.js"},
	"py":         {"python"},
	"python":     {"py"},
	"mongo":      {"mongodb"},
	"mongodb":    {"mongo"},
}

// ExpandQuery returns q followed by its known aliases. q keeps its original case
// and always comes first; the result has no duplicates.
func ExpandQuery(q string) []string {
	terms := []string{q}
	for _, alias := range queryAliases[strings.ToLower(q)] {
		if alias != q {
			terms = append(terms, alias)
		}
	}
	return terms
}
