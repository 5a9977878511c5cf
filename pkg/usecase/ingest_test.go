package usecase_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/repository/memory"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/usecase"
)

type semanticAdd struct {
	Content  string
	UserID   types.UserID
	Metadata map[string]any
}

// mockSemantic records add calls and serves canned search results
type mockSemantic struct {
	adds      []semanticAdd
	addErr    error
	nextID    types.ExternalMemoryID
	searchFn  func(q interfaces.SemanticQuery) ([]model.SemanticHit, error)
	deletedID types.ExternalMemoryID
}

func (m *mockSemantic) Add(ctx context.Context, content string, userID types.UserID, metadata map[string]any) (types.ExternalMemoryID, error) {
	m.adds = append(m.adds, semanticAdd{Content: content, UserID: userID, Metadata: metadata})
	if m.addErr != nil {
		return "", m.addErr
	}
	if m.nextID != "" {
		return m.nextID, nil
	}
	return "mem-1", nil
}

func (m *mockSemantic) Search(ctx context.Context, q interfaces.SemanticQuery) ([]model.SemanticHit, error) {
	if m.searchFn != nil {
		return m.searchFn(q)
	}
	return nil, nil
}

func (m *mockSemantic) Update(ctx context.Context, id types.ExternalMemoryID, userID types.UserID, content string) (bool, error) {
	return true, nil
}

func (m *mockSemantic) Delete(ctx context.Context, id types.ExternalMemoryID, userID types.UserID) (bool, error) {
	m.deletedID = id
	return true, nil
}

// mockInsight returns fixed insights so tag propagation is observable
type mockInsight struct {
	insights    model.Insights
	description string
}

func (m *mockInsight) Analyze(ctx context.Context, content string, contentType types.MessageType) model.Insights {
	return m.insights.Normalize()
}

func (m *mockInsight) AnalyzeImage(ctx context.Context, image []byte, filename, caption string) interfaces.ImageAnalysis {
	description := m.description
	if description == "" {
		description = "Image file: " + filename
	}
	return interfaces.ImageAnalysis{Description: description, Insights: m.insights.Normalize()}
}

type mockMedia struct {
	result *interfaces.ProcessedMedia
	err    error
}

func (m *mockMedia) Process(ctx context.Context, mediaURL string, msgType types.MessageType, contentType string) (*interfaces.ProcessedMedia, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type sentMessage struct {
	To   string
	Body string
}

type mockSender struct {
	sent []sentMessage
}

func (m *mockSender) SendMessage(ctx context.Context, to, body string) error {
	m.sent = append(m.sent, sentMessage{To: to, Body: body})
	return nil
}

var testNow = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

func inbound(sid, body string) *model.InboundMessage {
	return &model.InboundMessage{
		From:       "whatsapp:+14155551234",
		To:         "whatsapp:+14155550000",
		MessageSID: types.MessageSID(sid),
		Body:       body,
	}
}

func TestHandleInboundText(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	semantic := &mockSemantic{}
	insight := &mockInsight{insights: model.Insights{Tags: []string{"food", "shopping"}, Category: "tasks"}}

	uc := usecase.New(repo,
		usecase.WithSemantic(semantic),
		usecase.WithInsight(insight),
		usecase.WithClock(func() time.Time { return testNow }),
	)

	reply, err := uc.HandleInbound(ctx, inbound("SM001", "Grocery run tomorrow"))
	gt.NoError(t, err).Required()
	gt.Bool(t, strings.HasSuffix(reply, "Got it! I've saved your message to memory. 📝")).True()
	// first contact gets the greeting
	gt.Bool(t, strings.Contains(reply, "👋")).True()

	gt.Array(t, semantic.adds).Length(1).Required()
	gt.Value(t, semantic.adds[0].Content).Equal("Grocery run tomorrow")
	gt.Value(t, semantic.adds[0].Metadata["source"]).Equal("whatsapp")
	// time-scoped searches filter on this key
	gt.Value(t, semantic.adds[0].Metadata["created_at"]).Equal("2024-03-10T15:00:00Z")

	user, err := repo.User().GetByPhone(ctx, "+14155551234")
	gt.NoError(t, err).Required()

	records, err := repo.Memory().List(ctx, user.ID, 10, nil)
	gt.NoError(t, err).Required()
	gt.Array(t, records).Length(1).Required()
	gt.Value(t, records[0].Memory.Content).Equal("Grocery run tomorrow")
	gt.Value(t, records[0].Memory.ExternalMemoryID.String()).Equal("mem-1")
	gt.Array(t, records[0].Memory.Tags).Equal([]string{"food", "shopping"})

	t.Run("re-delivery of the same SID is a no-op", func(t *testing.T) {
		reply, err := uc.HandleInbound(ctx, inbound("SM001", "Grocery run tomorrow"))
		gt.NoError(t, err).Required()
		gt.Value(t, reply).Equal("Message processed successfully!")

		records, err := repo.Memory().List(ctx, user.ID, 10, nil)
		gt.NoError(t, err).Required()
		gt.Array(t, records).Length(1)
	})

	t.Run("known user gets no greeting", func(t *testing.T) {
		reply, err := uc.HandleInbound(ctx, inbound("SM002", "Dentist on Friday"))
		gt.NoError(t, err).Required()
		gt.Value(t, reply).Equal("Got it! I've saved your message to memory. 📝")
	})
}

func TestHandleInboundTextSemanticDegraded(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	semantic := &mockSemantic{addErr: goerr.Wrap(interfaces.ErrSemanticUnavailable, "backend down")}

	uc := usecase.New(repo, usecase.WithSemantic(semantic))

	reply, err := uc.HandleInbound(ctx, inbound("SM010", "Remember the wifi password is hunter2"))
	gt.NoError(t, err).Required()
	gt.Bool(t, strings.Contains(reply, "📝")).True()

	user, err := repo.User().GetByPhone(ctx, "+14155551234")
	gt.NoError(t, err).Required()

	// the relational record is still created, without a backend reference
	records, err := repo.Memory().List(ctx, user.ID, 10, nil)
	gt.NoError(t, err).Required()
	gt.Array(t, records).Length(1).Required()
	gt.Value(t, records[0].Memory.ExternalMemoryID.String()).Equal("")
}

func TestHandleInboundHelp(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New())

	reply, err := uc.HandleInbound(ctx, inbound("SM020", "help"))
	gt.NoError(t, err).Required()
	gt.Bool(t, strings.Contains(reply, "memory assistant")).True()
	gt.Bool(t, strings.Contains(reply, "/list")).True()
}

func TestHandleInboundList(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := usecase.New(repo, usecase.WithSemantic(&mockSemantic{}))

	t.Run("empty", func(t *testing.T) {
		reply, err := uc.HandleInbound(ctx, inbound("SM030", "/list"))
		gt.NoError(t, err).Required()
		gt.Value(t, reply).Equal("🗂️ You don't have any memories saved yet. Send me some messages, images, or voice notes!")
	})

	t.Run("with memories", func(t *testing.T) {
		_, err := uc.HandleInbound(ctx, inbound("SM031", "Parked on level 3"))
		gt.NoError(t, err).Required()

		reply, err := uc.HandleInbound(ctx, inbound("SM032", "/list"))
		gt.NoError(t, err).Required()
		gt.Bool(t, strings.HasPrefix(reply, "🗂️ Your Recent Memories (1 total):")).True()
		gt.Bool(t, strings.Contains(reply, "1. Parked on level 3")).True()
	})
}

func TestHandleInboundImage(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	semantic := &mockSemantic{nextID: "mem-img"}
	insight := &mockInsight{
		insights:    model.Insights{Tags: []string{"visual", "receipt"}},
		description: "A parking receipt on a dashboard",
	}

	dir := t.TempDir()
	imagePath := filepath.Join(dir, "abc123.jpg")
	gt.NoError(t, os.WriteFile(imagePath, []byte("jpeg-bytes"), 0o644)).Required()

	media := &mockMedia{result: &interfaces.ProcessedMedia{Path: imagePath, Hash: "abc123", Size: 10}}

	uc := usecase.New(repo,
		usecase.WithSemantic(semantic),
		usecase.WithInsight(insight),
		usecase.WithMediaProcessor(media),
	)

	msg := inbound("SM040", "my parking spot")
	msg.NumMedia = 1
	msg.MediaURL = "https://api.twilio.com/media/abc"
	msg.MediaContentType = "image/jpeg"

	reply, err := uc.HandleInbound(ctx, msg)
	gt.NoError(t, err).Required()
	gt.Value(t, reply).Equal("📸 I've saved your image to memory!")

	user, err := repo.User().GetByPhone(ctx, "+14155551234")
	gt.NoError(t, err).Required()

	records, err := repo.Memory().List(ctx, user.ID, 10, nil)
	gt.NoError(t, err).Required()
	gt.Array(t, records).Length(1).Required()
	gt.Value(t, records[0].Memory.Content).
		Equal("Image with caption 'my parking spot': A parking receipt on a dashboard")
	gt.Value(t, records[0].Memory.ExternalMemoryID.String()).Equal("mem-img")

	// the semantic side indexes the description, not the composite
	gt.Array(t, semantic.adds).Length(1).Required()
	gt.Value(t, semantic.adds[0].Content).Equal("A parking receipt on a dashboard")
	gt.Value(t, semantic.adds[0].Metadata["content_hash"]).Equal("abc123")

	// media fields are backfilled on the interaction
	interaction, err := repo.Interaction().GetBySID(ctx, "SM040")
	gt.NoError(t, err).Required()
	gt.Value(t, interaction.MediaPath).Equal(imagePath)
	gt.Value(t, interaction.MediaHash).Equal("abc123")
}

func TestHandleInboundImageDegraded(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	semantic := &mockSemantic{addErr: goerr.Wrap(interfaces.ErrSemanticUnavailable, "backend down")}

	dir := t.TempDir()
	imagePath := filepath.Join(dir, "def456.jpg")
	gt.NoError(t, os.WriteFile(imagePath, []byte("jpeg-bytes"), 0o644)).Required()

	uc := usecase.New(repo,
		usecase.WithSemantic(semantic),
		usecase.WithMediaProcessor(&mockMedia{result: &interfaces.ProcessedMedia{Path: imagePath, Hash: "def456"}}),
	)

	msg := inbound("SM041", "")
	msg.NumMedia = 1
	msg.MediaURL = "https://api.twilio.com/media/def"
	msg.MediaContentType = "image/jpeg"

	reply, err := uc.HandleInbound(ctx, msg)
	gt.NoError(t, err).Required()
	gt.Value(t, reply).Equal("📸 I received your image but had trouble saving it to memory. The image is stored safely.")
}

func TestHandleInboundAudio(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	semantic := &mockSemantic{nextID: "mem-audio"}

	media := &mockMedia{result: &interfaces.ProcessedMedia{
		Path:       "media/audio/fff.ogg",
		Hash:       "fff",
		Transcript: "pick up the dry cleaning on Thursday",
	}}

	uc := usecase.New(repo,
		usecase.WithSemantic(semantic),
		usecase.WithMediaProcessor(media),
	)

	msg := inbound("SM050", "")
	msg.NumMedia = 1
	msg.MediaURL = "https://api.twilio.com/media/fff"
	msg.MediaContentType = "audio/ogg"

	reply, err := uc.HandleInbound(ctx, msg)
	gt.NoError(t, err).Required()
	gt.Value(t, reply).Equal("🎤 Got your voice message: \"pick up the dry cleaning on Thursday\"")

	user, err := repo.User().GetByPhone(ctx, "+14155551234")
	gt.NoError(t, err).Required()

	records, err := repo.Memory().List(ctx, user.ID, 10, nil)
	gt.NoError(t, err).Required()
	gt.Array(t, records).Length(1).Required()
	gt.Value(t, records[0].Memory.Content).Equal("Voice message: pick up the dry cleaning on Thursday")
}

func TestHandleInboundAudioNoTranscript(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New(),
		usecase.WithSemantic(&mockSemantic{}),
		usecase.WithMediaProcessor(&mockMedia{result: &interfaces.ProcessedMedia{Path: "media/audio/g.ogg", Hash: "g"}}),
	)

	msg := inbound("SM051", "")
	msg.NumMedia = 1
	msg.MediaURL = "https://api.twilio.com/media/g"
	msg.MediaContentType = "audio/ogg"

	reply, err := uc.HandleInbound(ctx, msg)
	gt.NoError(t, err).Required()
	gt.Value(t, reply).Equal("🎤 I've saved your voice message to memory!")
}

func TestHandleInboundMediaFailure(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New(),
		usecase.WithSemantic(&mockSemantic{}),
		usecase.WithMediaProcessor(&mockMedia{err: goerr.New("download failed")}),
	)

	msg := inbound("SM060", "")
	msg.NumMedia = 1
	msg.MediaURL = "https://api.twilio.com/media/x"
	msg.MediaContentType = "image/jpeg"

	reply, err := uc.HandleInbound(ctx, msg)
	gt.NoError(t, err).Required()
	gt.Value(t, reply).Equal("🔄 I received your image but encountered an issue. Let me try again.")
}

func TestProcessAndReply(t *testing.T) {
	ctx := context.Background()
	sender := &mockSender{}
	uc := usecase.New(memory.New(),
		usecase.WithSemantic(&mockSemantic{}),
		usecase.WithSender(sender),
	)

	gt.NoError(t, uc.ProcessAndReply(ctx, inbound("SM070", "note to self"))).Required()
	gt.Array(t, sender.sent).Length(1).Required()
	gt.Value(t, sender.sent[0].To).Equal("whatsapp:+14155551234")
	gt.Bool(t, strings.Contains(sender.sent[0].Body, "📝")).True()
}

func TestAddManualMemory(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	semantic := &mockSemantic{nextID: "mem-api"}
	uc := usecase.New(repo,
		usecase.WithSemantic(semantic),
		usecase.WithClock(func() time.Time { return testNow }),
	)

	user, err := repo.User().GetOrCreate(ctx, "+14155551234", "whatsapp:+14155551234")
	gt.NoError(t, err).Required()

	record, err := uc.AddManualMemory(ctx, usecase.ManualMemoryInput{
		UserID:  user.ID,
		Content: "Passport renewal submitted",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, record.ExternalMemoryID.String()).Equal("mem-api")
	gt.Value(t, record.Content).Equal("Passport renewal submitted")

	gt.Array(t, semantic.adds).Length(1).Required()
	gt.Value(t, semantic.adds[0].Metadata["source"]).Equal("api")
	gt.Value(t, semantic.adds[0].Metadata["created_at"]).Equal("2024-03-10T15:00:00Z")

	t.Run("unknown user rejected", func(t *testing.T) {
		_, err := uc.AddManualMemory(ctx, usecase.ManualMemoryInput{UserID: "nobody", Content: "x"})
		gt.Error(t, err)
	})

	t.Run("empty content rejected", func(t *testing.T) {
		_, err := uc.AddManualMemory(ctx, usecase.ManualMemoryInput{UserID: user.ID})
		gt.Error(t, err)
	})
}
