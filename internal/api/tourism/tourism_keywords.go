package tourism

import (
	"strings"
	"unicode"

	"github.com/FACorreiaa/go-travelmate/config"
)

// Keywords holds the tunable word lists used by the analyze step. All
// entries are stored lowercased.
type Keywords struct {
	Places    []string
	Complex   []string
	Duration  []string
	Stopwords map[string]struct{}
}

// DefaultKeywords mirrors config.yml so the orchestrator works without a
// loaded configuration.
func DefaultKeywords() Keywords {
	return NewKeywords(config.KeywordsConfig{
		Places:   []string{"place", "attraction", "visit", "spot", "thing", "see", "do", "tourist", "sights", "landmark"},
		Complex:  []string{"plan", "trip", "weekend", "itinerary", "schedule", "visit for", "days in", "day in", "spend", "vacation", "travel to"},
		Duration: []string{"days", "day", "weekend", "week"},
		LocationStopwords: []string{
			"what", "where", "when", "which", "who", "how", "tell", "show", "give", "plan", "find",
			"recommend", "could", "would", "should", "please", "weather", "things", "places",
			"today", "tomorrow", "weekend",
		},
	})
}

// NewKeywords builds the tables from configuration. An empty list falls back
// to the built-in default for that table.
func NewKeywords(cfg config.KeywordsConfig) Keywords {
	k := Keywords{
		Places:    lowerAll(cfg.Places),
		Complex:   lowerAll(cfg.Complex),
		Duration:  lowerAll(cfg.Duration),
		Stopwords: make(map[string]struct{}, len(cfg.LocationStopwords)),
	}
	for _, w := range lowerAll(cfg.LocationStopwords) {
		k.Stopwords[w] = struct{}{}
	}
	if len(k.Places) == 0 || len(k.Complex) == 0 || len(k.Duration) == 0 || len(k.Stopwords) == 0 {
		def := DefaultKeywords()
		if len(k.Places) == 0 {
			k.Places = def.Places
		}
		if len(k.Complex) == 0 {
			k.Complex = def.Complex
		}
		if len(k.Duration) == 0 {
			k.Duration = def.Duration
		}
		if len(k.Stopwords) == 0 {
			k.Stopwords = def.Stopwords
		}
	}
	return k
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeQuery lowercases text and turns every run of non letters/digits
// into a single space, padded on both sides.
func normalizeQuery(q string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(q) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// containsAny reports whether any keyword starts a word of the normalized
// query. "attraction" matches "attractions" but "do" does not match "London".
func containsAny(normalized string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(normalized, " "+kw) {
			return true
		}
	}
	return false
}

func (k Keywords) asksForPlaces(normalized string) bool { return containsAny(normalized, k.Places) }
func (k Keywords) isComplex(normalized string) bool     { return containsAny(normalized, k.Complex) }
func (k Keywords) hasDuration(normalized string) bool   { return containsAny(normalized, k.Duration) }

// guessLocation returns the first capitalized word longer than three
// characters that is not a stop word, trimmed of trailing punctuation.
func (k Keywords) guessLocation(query string) string {
	for _, word := range strings.Fields(query) {
		if len([]rune(word)) <= 3 {
			continue
		}
		first := []rune(word)[0]
		if !unicode.IsUpper(first) {
			continue
		}
		candidate := strings.TrimRight(word, "?,.!;:")
		key := strings.ToLower(candidate)
		if i := strings.IndexAny(key, "'’"); i >= 0 {
			key = key[:i]
		}
		if _, stop := k.Stopwords[key]; stop {
			continue
		}
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
