package insight

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/gollem"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
)

// defaultCategories are the classification buckets offered to the LLM
// when no custom set is configured.
var defaultCategories = []string{
	"food", "productivity", "personal", "shopping", "entertainment",
	"travel", "health", "work", "social", "general",
}

// client implements interfaces.InsightService. A nil LLM client puts
// the service in degraded mode where every call returns its
// deterministic fallback, so ingestion keeps working without LLM
// credentials.
type client struct {
	llmClient  gollem.LLMClient
	categories []string
}

var _ interfaces.InsightService = &client{}

type Option func(*client)

// WithCategories replaces the category set offered to the LLM
func WithCategories(categories []string) Option {
	return func(c *client) {
		if len(categories) > 0 {
			c.categories = categories
		}
	}
}

// New creates an insight service. llmClient may be nil.
func New(llmClient gollem.LLMClient, opts ...Option) interfaces.InsightService {
	c := &client{
		llmClient:  llmClient,
		categories: defaultCategories,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type insightResponse struct {
	Tags      []string `json:"tags"`
	Category  string   `json:"category"`
	Sentiment string   `json:"sentiment"`
}

type imageAnalysisResponse struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	Sentiment   string   `json:"sentiment"`
}

// Analyze extracts tags, category and sentiment from content. It never
// fails: any LLM or parse error degrades to the default insights.
func (c *client) Analyze(ctx context.Context, content string, contentType types.MessageType) model.Insights {
	if c.llmClient == nil || strings.TrimSpace(content) == "" {
		return model.DefaultInsights()
	}

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(insightSchema()),
	)
	if err != nil {
		logging.From(ctx).Warn("failed to create insight session, using defaults", "error", err)
		return model.DefaultInsights()
	}

	prompt := fmt.Sprintf(`Analyze the following content and extract insights.

Content: %s
Content Type: %s

Provide:
1. "tags": 2-4 relevant tags (e.g. ["food", "social", "planning"])
2. "category": main category (%s)
3. "sentiment": emotional tone (positive, negative, neutral)`, content, contentType, strings.Join(c.categories, ", "))

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil || len(resp.Texts) == 0 {
		logging.From(ctx).Warn("insight extraction failed, using defaults", "error", err)
		return model.DefaultInsights()
	}

	var parsed insightResponse
	if err := json.Unmarshal([]byte(resp.Texts[0]), &parsed); err != nil {
		logging.From(ctx).Warn("failed to parse insight response, using defaults",
			"error", err, "response", resp.Texts[0])
		return model.DefaultInsights()
	}

	return model.Insights{
		Tags:      parsed.Tags,
		Category:  parsed.Category,
		Sentiment: types.Sentiment(parsed.Sentiment),
	}.Normalize()
}

// AnalyzeImage describes an image and extracts insights in a single
// call. Failures degrade to a filename-based description with default
// insights.
func (c *client) AnalyzeImage(ctx context.Context, image []byte, filename, caption string) interfaces.ImageAnalysis {
	fallback := interfaces.ImageAnalysis{
		Description: fmt.Sprintf("Image file: %s", filepath.Base(filename)),
		Insights:    model.DefaultInsights(),
	}

	if c.llmClient == nil || len(image) == 0 {
		return fallback
	}

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(imageAnalysisSchema()),
	)
	if err != nil {
		logging.From(ctx).Warn("failed to create image analysis session, using fallback", "error", err)
		return fallback
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `Analyze this image and provide:

1. "description": concise 1-2 sentence description of the image
2. "tags": 2-4 relevant tags based on image content
3. "category": main category (%s)
4. "sentiment": emotional tone of the image (positive, negative, neutral)
`, strings.Join(c.categories, ", "))
	if caption != "" {
		fmt.Fprintf(&sb, "\nAlso consider this additional context: %s\n", caption)
	}
	fmt.Fprintf(&sb, "\nImage (data URL):\ndata:image/%s;base64,%s\n",
		imageFormat(filename), base64.StdEncoding.EncodeToString(image))

	resp, err := session.GenerateContent(ctx, gollem.Text(sb.String()))
	if err != nil || len(resp.Texts) == 0 {
		logging.From(ctx).Warn("image analysis failed, using fallback", "error", err)
		return fallback
	}

	var parsed imageAnalysisResponse
	if err := json.Unmarshal([]byte(resp.Texts[0]), &parsed); err != nil {
		logging.From(ctx).Warn("failed to parse image analysis response, using fallback",
			"error", err, "response", resp.Texts[0])
		return fallback
	}

	result := interfaces.ImageAnalysis{
		Description: strings.TrimSpace(parsed.Description),
		Insights: model.Insights{
			Tags:      parsed.Tags,
			Category:  parsed.Category,
			Sentiment: types.Sentiment(parsed.Sentiment),
		}.Normalize(),
	}
	if result.Description == "" {
		result.Description = fallback.Description
	}
	return result
}

func insightSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title: "ContentInsights",
		Type:  gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"tags": {
				Type:        gollem.TypeArray,
				Description: "2-4 relevant tags for the content",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
				Required:    true,
			},
			"category": {
				Type:        gollem.TypeString,
				Description: "Main category of the content",
				Required:    true,
			},
			"sentiment": {
				Type:        gollem.TypeString,
				Description: "Emotional tone: positive, negative or neutral",
				Required:    true,
			},
		},
	}
}

func imageAnalysisSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title: "ImageAnalysis",
		Type:  gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"description": {
				Type:        gollem.TypeString,
				Description: "Concise 1-2 sentence description of the image",
				Required:    true,
			},
			"tags": {
				Type:        gollem.TypeArray,
				Description: "2-4 relevant tags based on image content",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
				Required:    true,
			},
			"category": {
				Type:        gollem.TypeString,
				Description: "Main category of the image",
				Required:    true,
			},
			"sentiment": {
				Type:        gollem.TypeString,
				Description: "Emotional tone: positive, negative or neutral",
				Required:    true,
			},
		},
	}
}

// imageFormat derives the data URL media subtype from the filename
func imageFormat(filename string) string {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if format == "jpg" || format == "" {
		format = "jpeg"
	}
	return format
}
