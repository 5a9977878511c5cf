package insight_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/service/insight"
)

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return s.GenerateStream(ctx, input...)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if s.generateContentFn != nil {
		return s.generateContentFn(ctx, input...)
	}
	return &gollem.Response{Texts: []string{"{}"}}, nil
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if c.newSessionFn != nil {
		return c.newSessionFn(ctx, options...)
	}
	return &mockLLMSession{}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func sessionReturning(text string) *mockLLMClient {
	return &mockLLMClient{
		newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			return &mockLLMSession{
				generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
					return &gollem.Response{Texts: []string{text}}, nil
				},
			}, nil
		},
	}
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("parses insight response", func(t *testing.T) {
		svc := insight.New(sessionReturning(`{"tags":["food","social"],"category":"food","sentiment":"positive"}`))

		insights := svc.Analyze(ctx, "Had amazing sushi with friends", types.MessageTypeText)
		gt.Array(t, insights.Tags).Equal([]string{"food", "social"})
		gt.Value(t, insights.Category).Equal("food")
		gt.Value(t, insights.Sentiment).Equal(types.SentimentPositive)
	})

	t.Run("invalid sentiment normalizes to neutral", func(t *testing.T) {
		svc := insight.New(sessionReturning(`{"tags":["a"],"category":"personal","sentiment":"ecstatic"}`))

		insights := svc.Analyze(ctx, "some note", types.MessageTypeText)
		gt.Value(t, insights.Sentiment).Equal(types.SentimentNeutral)
	})

	t.Run("LLM failure degrades to defaults", func(t *testing.T) {
		svc := insight.New(&mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return nil, goerr.New("quota exceeded")
			},
		})

		insights := svc.Analyze(ctx, "some note", types.MessageTypeText)
		gt.Array(t, insights.Tags).Length(0)
		gt.Value(t, insights.Category).Equal("general")
		gt.Value(t, insights.Sentiment).Equal(types.SentimentNeutral)
	})

	t.Run("unparseable response degrades to defaults", func(t *testing.T) {
		svc := insight.New(sessionReturning(`not json at all`))

		insights := svc.Analyze(ctx, "some note", types.MessageTypeText)
		gt.Value(t, insights.Category).Equal("general")
	})

	t.Run("nil client returns defaults", func(t *testing.T) {
		svc := insight.New(nil)

		insights := svc.Analyze(ctx, "some note", types.MessageTypeText)
		gt.Value(t, insights.Category).Equal("general")
		gt.Array(t, insights.Tags).Length(0)
	})
}

func TestAnalyzeImage(t *testing.T) {
	ctx := context.Background()
	image := []byte{0xFF, 0xD8, 0xFF}

	t.Run("parses combined analysis", func(t *testing.T) {
		svc := insight.New(sessionReturning(`{"description":"A plate of sushi on a wooden table.","tags":["food"],"category":"food","sentiment":"positive"}`))

		analysis := svc.AnalyzeImage(ctx, image, "photo.jpg", "dinner tonight")
		gt.Value(t, analysis.Description).Equal("A plate of sushi on a wooden table.")
		gt.Array(t, analysis.Insights.Tags).Equal([]string{"food"})
		gt.Value(t, analysis.Insights.Sentiment).Equal(types.SentimentPositive)
	})

	t.Run("failure falls back to filename description", func(t *testing.T) {
		svc := insight.New(&mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return nil, goerr.New("unavailable")
			},
		})

		analysis := svc.AnalyzeImage(ctx, image, "photo.jpg", "")
		gt.Value(t, analysis.Description).Equal("Image file: photo.jpg")
		gt.Value(t, analysis.Insights.Category).Equal("general")
	})

	t.Run("nil client falls back", func(t *testing.T) {
		svc := insight.New(nil)

		analysis := svc.AnalyzeImage(ctx, image, "media/abc123.png", "")
		gt.Value(t, analysis.Description).Equal("Image file: abc123.png")
	})
}
