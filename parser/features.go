package parser

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// ShortTextLimit is the rune length under which unmatched equipment text is kept
// verbatim as a single feature.
const ShortTextLimit = 200

type phrase struct {
	label   string
	order   int
	pattern *regexp.Regexp
}

// Extractor matches free-text equipment strings against a known vocabulary.
type Extractor struct {
	phrases []phrase // longest first
}

// NewExtractor compiles the vocabulary. Blank and repeated phrases are dropped.
func NewExtractor(vocabulary []string) *Extractor {
	seen := make(map[string]struct{}, len(vocabulary))
	phrases := make([]phrase, 0, len(vocabulary))
	for _, label := range vocabulary {
		label = strings.TrimSpace(label)
		key := strings.ToLower(label)
		if label == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		phrases = append(phrases, phrase{
			label:   label,
			order:   len(phrases),
			pattern: regexp.MustCompile("(?i)" + regexp.QuoteMeta(label)),
		})
	}

	sort.SliceStable(phrases, func(i, j int) bool {
		return utf8.RuneCountInString(phrases[i].label) > utf8.RuneCountInString(phrases[j].label)
	})
	return &Extractor{phrases: phrases}
}

// Extract returns the vocabulary phrases present in text, in vocabulary order.
// Each hit is cut out of the working text before shorter phrases are tried, so
// "Side Air Bags" never also yields "Air Bag".
func (e *Extractor) Extract(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	remaining := trimmed
	var hits []phrase
	for _, p := range e.phrases {
		if !p.pattern.MatchString(remaining) {
			continue
		}
		hits = append(hits, p)
		remaining = p.pattern.ReplaceAllLiteralString(remaining, " ")
	}

	if len(hits) == 0 {
		if utf8.RuneCountInString(trimmed) < ShortTextLimit {
			return []string{trimmed}
		}
		return nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].order < hits[j].order })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.label
	}
	return out
}
