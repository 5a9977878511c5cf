package usecase

import (
	"fmt"
	"strings"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

const (
	// relevanceThreshold filters weak semantic hits
	relevanceThreshold = 0.5
	// lenientThreshold admits the single best hit when nothing clears
	// the main threshold.
	lenientThreshold = 0.3

	maxSemanticDisplay = 3
	maxFallbackDisplay = 5

	fallbackContentLimit = 100
)

// genericTags carry no information in a reply and are skipped when
// annotating results.
var genericTags = map[string]struct{}{
	"general": {},
	"text":    {},
	"voice":   {},
	"visual":  {},
}

// reconcile merges semantic hits with relational records into the
// ranked answer. Hits at or above the relevance threshold win, in
// backend order; when none qualify, the single top hit is admitted at
// the lenient threshold. Without any surviving hit the relational
// records become the answer (fallback true), newest first.
func reconcile(hits []model.SemanticHit, records []*model.MemoryWithInteraction) ([]model.RankedResult, bool) {
	surviving := make([]model.SemanticHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Score >= relevanceThreshold {
			surviving = append(surviving, hit)
		}
	}
	if len(surviving) == 0 && len(hits) > 0 {
		top := hits[0]
		for _, hit := range hits[1:] {
			if hit.Score > top.Score {
				top = hit
			}
		}
		if top.Score >= lenientThreshold {
			surviving = []model.SemanticHit{top}
		}
	}

	if len(surviving) == 0 {
		return fallbackResults(records), len(records) > 0
	}

	byExternalID := make(map[types.ExternalMemoryID]*model.MemoryWithInteraction, len(records))
	for _, record := range records {
		if record.Memory.ExternalMemoryID != "" {
			byExternalID[record.Memory.ExternalMemoryID] = record
		}
	}

	if len(surviving) > maxSemanticDisplay {
		surviving = surviving[:maxSemanticDisplay]
	}

	results := make([]model.RankedResult, 0, len(surviving))
	for _, hit := range surviving {
		matched := byExternalID[hit.ExternalMemoryID]
		contentType := hit.ContentType()
		tags := displayTags(hit.Tags())

		results = append(results, model.RankedResult{
			ExternalMemoryID: hit.ExternalMemoryID,
			DisplayText:      formatHit(hit, contentType, tags, matched),
			RawText:          hit.Text,
			Score:            hit.Score,
			ContentType:      contentType,
			Tags:             tags,
			Matched:          matched,
		})
	}
	return results, false
}

func fallbackResults(records []*model.MemoryWithInteraction) []model.RankedResult {
	if len(records) > maxFallbackDisplay {
		records = records[:maxFallbackDisplay]
	}

	results := make([]model.RankedResult, 0, len(records))
	for _, record := range records {
		results = append(results, model.RankedResult{
			ExternalMemoryID: record.Memory.ExternalMemoryID,
			DisplayText:      truncate(record.Memory.Content, fallbackContentLimit),
			RawText:          record.Memory.Content,
			ContentType:      record.MessageType,
			Tags:             record.Memory.Tags,
			Matched:          record,
		})
	}
	return results
}

// formatHit renders one semantic hit for chat display: type emoji,
// memory text, date or source context, and up to three non-generic
// tags.
func formatHit(hit model.SemanticHit, contentType types.MessageType, tags []string, matched *model.MemoryWithInteraction) string {
	var emoji string
	switch contentType {
	case types.MessageTypeImage:
		emoji = "📸"
	case types.MessageTypeAudio:
		emoji = "🎤"
	default:
		emoji = "💬"
	}

	var sourceInfo string
	switch {
	case matched != nil && !matched.InteractionDate.IsZero():
		sourceInfo = fmt.Sprintf(" (%s)", matched.InteractionDate.Format("2006-01-02"))
	case hit.Source() != "":
		sourceInfo = fmt.Sprintf(" (from %s)", hit.Source())
	}

	var tagInfo string
	if len(tags) > 0 {
		tagInfo = "\n   🏷️ Tags: " + strings.Join(tags, ", ")
	}

	return fmt.Sprintf("%s %s%s%s", emoji, strings.TrimSpace(hit.Text), sourceInfo, tagInfo)
}

func displayTags(tags []string) []string {
	if len(tags) > 3 {
		tags = tags[:3]
	}
	var out []string
	for _, tag := range tags {
		if _, ok := genericTags[tag]; ok {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
