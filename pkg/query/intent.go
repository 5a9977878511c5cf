package query

import (
	"regexp"
	"strings"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

type intentGroup struct {
	intent   types.Intent
	patterns []*regexp.Regexp
}

// Intent pattern groups, checked first-match-wins in declaration
// order. Within a group any sub-pattern match is sufficient.
var intentGroups = []intentGroup{
	{types.IntentSearch, []*regexp.Regexp{
		regexp.MustCompile(`what.*did.*i.*`),
		regexp.MustCompile(`show.*me.*`),
		regexp.MustCompile(`find.*`),
		regexp.MustCompile(`where.*`),
		regexp.MustCompile(`when.*`),
		regexp.MustCompile(`remind.*me.*about.*`),
		regexp.MustCompile(`do.*you.*remember.*`),
		regexp.MustCompile(`.*\?`),
	}},
	{types.IntentList, []*regexp.Regexp{
		regexp.MustCompile(`/list`),
		regexp.MustCompile(`list.*all`),
		regexp.MustCompile(`show.*all.*memories`),
		regexp.MustCompile(`my.*memories`),
	}},
	{types.IntentDelete, []*regexp.Regexp{
		regexp.MustCompile(`delete.*`),
		regexp.MustCompile(`remove.*`),
		regexp.MustCompile(`forget.*`),
	}},
	{types.IntentHelp, []*regexp.Regexp{
		regexp.MustCompile(`help`),
		regexp.MustCompile(`how.*`),
		regexp.MustCompile(`what.*can.*you.*do`),
	}},
}

// ClassifyIntent maps free text to exactly one intent. The exact list
// command tokens take precedence over everything else so that "/list"
// is never misrouted to search by the loose question heuristics.
func ClassifyIntent(text string) types.Intent {
	t := strings.ToLower(strings.TrimSpace(text))

	if t == "/list" || t == "list" {
		return types.IntentList
	}

	for _, group := range intentGroups {
		for _, re := range group.patterns {
			if re.MatchString(t) {
				return group.intent
			}
		}
	}
	return types.IntentMessage
}
