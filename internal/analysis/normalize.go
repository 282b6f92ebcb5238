package analysis

import (
	"regexp"
	"strings"
)

// stopWords are filler and unit-of-measure tokens that carry no identity for
// an item description. Dropping them lets "10 Pieces of Steel Bolt" and
// "steel bolt" normalize to the same key.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "up": true, "about": true,
	"into": true, "through": true, "during": true, "before": true,
	"after": true, "above": true, "below": true, "between": true,
	"among": true, "under": true, "over": true,
	"piece": true, "pieces": true, "unit": true, "units": true,
	"item": true, "items": true, "nos": true, "no": true, "qty": true,
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s]`)

// NormalizeKey reduces an item description to a canonical comparison key.
// The transform is idempotent: normalizing an already-normalized key returns
// it unchanged.
func NormalizeKey(description string) string {
	s := strings.ToLower(description)
	s = nonAlphanumeric.ReplaceAllString(s, " ")

	var kept []string
	for _, token := range strings.Fields(s) {
		if len(token) <= 1 || stopWords[token] {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}
