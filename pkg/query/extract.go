// Package query parses natural-language memory queries: intent
// classification, time-expression extraction and time-range
// resolution. All functions are pure and safe for concurrent use.
package query

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

type timePattern struct {
	kind types.TimeKind
	re   *regexp.Regexp
}

// Recognized time expressions. Matching is case-insensitive and
// substring based; overlapping matches are not de-duplicated.
var timePatterns = []timePattern{
	{types.TimeKindToday, regexp.MustCompile(`\btoday\b`)},
	{types.TimeKindYesterday, regexp.MustCompile(`\byesterday\b`)},
	{types.TimeKindThisWeek, regexp.MustCompile(`\bthis week\b`)},
	{types.TimeKindLastWeek, regexp.MustCompile(`\blast week\b`)},
	{types.TimeKindThisMonth, regexp.MustCompile(`\bthis month\b`)},
	{types.TimeKindLastMonth, regexp.MustCompile(`\blast month\b`)},
	{types.TimeKindHoursAgo, regexp.MustCompile(`(\d+)\s+hours?\s+ago`)},
	{types.TimeKindDaysAgo, regexp.MustCompile(`(\d+)\s+days?\s+ago`)},
	{types.TimeKindWeeksAgo, regexp.MustCompile(`(\d+)\s+weeks?\s+ago`)},
	{types.TimeKindMonthsAgo, regexp.MustCompile(`(\d+)\s+months?\s+ago`)},
	{types.TimeKindLastHours, regexp.MustCompile(`\blast\s+(\d+)\s+hours?\b`)},
}

type positionedRef struct {
	ref model.TimeReference
	pos int
}

// ExtractTimeReferences finds all recognized time expressions in text,
// ordered by their position of appearance. Numeric magnitudes are
// captured for the N-ago and last-N kinds. Absence of matches yields
// an empty list, never an error.
func ExtractTimeReferences(text string) []model.TimeReference {
	lower := strings.ToLower(text)

	var found []positionedRef
	for _, p := range timePatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(lower, -1) {
			ref := model.TimeReference{
				Kind:    p.kind,
				RawText: lower[loc[0]:loc[1]],
			}
			if len(loc) >= 4 && loc[2] >= 0 {
				n, err := strconv.Atoi(lower[loc[2]:loc[3]])
				if err == nil {
					ref.Magnitude = n
				}
			}
			found = append(found, positionedRef{ref: ref, pos: loc[0]})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].pos < found[j].pos
	})

	refs := make([]model.TimeReference, len(found))
	for i, f := range found {
		refs[i] = f.ref
	}
	return refs
}

var stopWords = map[string]struct{}{
	"i": {}, "me": {}, "my": {}, "you": {}, "your": {}, "the": {}, "a": {},
	"an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {}, "have": {},
	"has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "can": {}, "may": {},
	"might": {}, "what": {}, "when": {}, "where": {}, "who": {}, "how": {},
	"why": {}, "this": {}, "that": {}, "these": {}, "those": {},
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

const maxKeywords = 10

// ExtractKeywords pulls the meaningful terms out of a query, dropping
// stop words and short tokens.
func ExtractKeywords(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")

	var keywords []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		if _, ok := stopWords[word]; ok {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
