package interfaces

import (
	"context"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// ImageAnalysis is the combined result of describing an image and
// extracting insights from it in one call.
type ImageAnalysis struct {
	Description string
	Insights    model.Insights
}

// InsightService derives tags, category and sentiment from content,
// and descriptive text from images. Implementations must return
// deterministic fallback values (empty tags, "general", "neutral",
// filename-based description) instead of failing when the backing LLM
// is unavailable.
type InsightService interface {
	// Analyze extracts insights from text or transcript content
	Analyze(ctx context.Context, content string, contentType types.MessageType) model.Insights

	// AnalyzeImage describes an image and extracts insights from it.
	// The caption, when present, is considered as additional context.
	AnalyzeImage(ctx context.Context, image []byte, filename, caption string) ImageAnalysis
}
