package usecase_test

import (
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/usecase"
)

func TestReconcileThresholds(t *testing.T) {
	t.Run("strong hits survive in backend order", func(t *testing.T) {
		hits := []model.SemanticHit{
			{ExternalMemoryID: "a", Text: "first", Score: 0.7},
			{ExternalMemoryID: "b", Text: "second", Score: 0.9},
			{ExternalMemoryID: "c", Text: "weak", Score: 0.2},
		}
		results, fallback := usecase.Reconcile(hits, nil)
		gt.Bool(t, fallback).False()
		gt.Array(t, results).Length(2).Required()
		gt.Value(t, results[0].RawText).Equal("first")
		gt.Value(t, results[1].RawText).Equal("second")
	})

	t.Run("at most three are displayed", func(t *testing.T) {
		hits := []model.SemanticHit{
			{ExternalMemoryID: "a", Score: 0.9}, {ExternalMemoryID: "b", Score: 0.8},
			{ExternalMemoryID: "c", Score: 0.7}, {ExternalMemoryID: "d", Score: 0.6},
		}
		results, _ := usecase.Reconcile(hits, nil)
		gt.Array(t, results).Length(3)
	})

	t.Run("lenient single result", func(t *testing.T) {
		hits := []model.SemanticHit{
			{ExternalMemoryID: "a", Text: "faint", Score: 0.1},
			{ExternalMemoryID: "b", Text: "best of the weak", Score: 0.45},
		}
		results, fallback := usecase.Reconcile(hits, nil)
		gt.Bool(t, fallback).False()
		gt.Array(t, results).Length(1).Required()
		gt.Value(t, results[0].RawText).Equal("best of the weak")
	})

	t.Run("all below lenient falls back to relational", func(t *testing.T) {
		hits := []model.SemanticHit{{ExternalMemoryID: "a", Score: 0.1}}
		records := []*model.MemoryWithInteraction{
			{Memory: model.MemoryRecord{Content: "stored note"}},
		}
		results, fallback := usecase.Reconcile(hits, records)
		gt.Bool(t, fallback).True()
		gt.Array(t, results).Length(1).Required()
		gt.Value(t, results[0].RawText).Equal("stored note")
	})

	t.Run("nothing at all", func(t *testing.T) {
		results, fallback := usecase.Reconcile(nil, nil)
		gt.Bool(t, fallback).False()
		gt.Array(t, results).Length(0)
	})
}

func TestReconcileFallbackDisplay(t *testing.T) {
	long := strings.Repeat("x", 150)
	records := []*model.MemoryWithInteraction{
		{Memory: model.MemoryRecord{Content: long}},
		{Memory: model.MemoryRecord{Content: "short"}},
		{Memory: model.MemoryRecord{Content: "3"}},
		{Memory: model.MemoryRecord{Content: "4"}},
		{Memory: model.MemoryRecord{Content: "5"}},
		{Memory: model.MemoryRecord{Content: "6"}},
	}

	results, fallback := usecase.Reconcile(nil, records)
	gt.Bool(t, fallback).True()
	// fallback shows more results than the semantic path, capped at 5
	gt.Array(t, results).Length(5).Required()
	gt.Value(t, results[0].DisplayText).Equal(strings.Repeat("x", 100) + "...")
	gt.Value(t, results[1].DisplayText).Equal("short")
}

func TestReconcileAnnotations(t *testing.T) {
	t.Run("matched record supplies the date", func(t *testing.T) {
		hits := []model.SemanticHit{{
			ExternalMemoryID: "mem-1",
			Text:             "sushi with Dana",
			Score:            0.8,
			Metadata:         map[string]any{"content_type": "image", "source": "whatsapp"},
		}}
		records := []*model.MemoryWithInteraction{{
			Memory:          model.MemoryRecord{ExternalMemoryID: "mem-1", Content: "sushi with Dana"},
			InteractionDate: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
		}}

		results, _ := usecase.Reconcile(hits, records)
		gt.Array(t, results).Length(1).Required()
		gt.Bool(t, strings.Contains(results[0].DisplayText, "📸")).True()
		gt.Bool(t, strings.Contains(results[0].DisplayText, "(2024-03-09)")).True()
	})

	t.Run("unmatched hit is annotated from its source", func(t *testing.T) {
		hits := []model.SemanticHit{{
			ExternalMemoryID: "mem-x",
			Text:             "orphaned memory",
			Score:            0.8,
			Metadata:         map[string]any{"source": "api"},
		}}

		results, _ := usecase.Reconcile(hits, nil)
		gt.Array(t, results).Length(1).Required()
		gt.Value(t, results[0].Matched).Nil()
		gt.Bool(t, strings.Contains(results[0].DisplayText, "💬")).True()
		gt.Bool(t, strings.Contains(results[0].DisplayText, "(from api)")).True()
	})

	t.Run("generic tags are skipped", func(t *testing.T) {
		hits := []model.SemanticHit{{
			ExternalMemoryID: "mem-y",
			Text:             "tagged memory",
			Score:            0.8,
			Metadata: map[string]any{
				"insights": map[string]any{"tags": []any{"general", "food", "friends", "travel"}},
			},
		}}

		results, _ := usecase.Reconcile(hits, nil)
		gt.Array(t, results).Length(1).Required()
		// only the first three tags are considered, generics dropped
		gt.Array(t, results[0].Tags).Equal([]string{"food", "friends"})
		gt.Bool(t, strings.Contains(results[0].DisplayText, "🏷️ Tags: food, friends")).True()
	})
}

func TestDisplayTags(t *testing.T) {
	gt.Array(t, usecase.DisplayTags([]string{"general", "text", "voice"})).Length(0)
	gt.Array(t, usecase.DisplayTags([]string{"a", "b", "c", "d"})).Equal([]string{"a", "b", "c"})
	gt.Array(t, usecase.DisplayTags(nil)).Length(0)
}

func TestVoiceTranscriptReply(t *testing.T) {
	short := usecase.VoiceTranscriptReply("on my way")
	gt.Value(t, short).Equal("🎤 Got your voice message: \"on my way\"")

	long := usecase.VoiceTranscriptReply(strings.Repeat("a", 60))
	gt.Value(t, long).Equal("🎤 Got your voice message: \"" + strings.Repeat("a", 50) + "...\"")
}
