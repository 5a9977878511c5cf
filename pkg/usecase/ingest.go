package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/interfaces"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/query"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/errutil"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
)

// HandleInbound processes one webhook delivery end to end and returns
// the reply text for the sender. Every message resolves to a reply;
// only a storage failure during the initial write surfaces as an error
// (with an apologetic reply alongside).
func (uc *UseCases) HandleInbound(ctx context.Context, msg *model.InboundMessage) (string, error) {
	user, isNew, err := uc.getOrCreateUser(ctx, msg.From)
	if err != nil {
		return replyDBError, err
	}

	msgType := msg.MessageType()
	if msgType != types.MessageTypeText {
		return uc.ingestMedia(ctx, user, msg, msgType)
	}

	switch query.ClassifyIntent(msg.Body) {
	case types.IntentSearch:
		return uc.searchAndRespond(ctx, user, msg.Body), nil
	case types.IntentList:
		return uc.handleListCommand(ctx, user, msg)
	case types.IntentHelp:
		if isNew {
			return greeting + replyHelp, nil
		}
		return replyHelp, nil
	case types.IntentDelete:
		return replyDeleteUnsupported, nil
	default:
		reply, err := uc.ingestText(ctx, user, msg)
		if err == nil && isNew {
			reply = greeting + reply
		}
		return reply, err
	}
}

func (uc *UseCases) ingestText(ctx context.Context, user *model.User, msg *model.InboundMessage) (string, error) {
	content := model.SanitizeContent(msg.Body)

	interaction, created, err := uc.repo.Interaction().Create(ctx, &model.Interaction{
		UserID:      user.ID,
		MessageSID:  msg.MessageSID,
		MessageType: types.MessageTypeText,
		Content:     content,
	})
	if err != nil {
		return replyDBError, goerr.Wrap(err, "failed to store interaction", goerr.V("sid", msg.MessageSID))
	}
	if !created {
		return replyDuplicate, nil
	}

	insights := uc.analyze(ctx, content, types.MessageTypeText)
	externalID := uc.addSemantic(ctx, content, user.ID, map[string]any{
		"source":       "whatsapp",
		"message_type": types.MessageTypeText.String(),
		"content_type": types.MessageTypeText.String(),
		"insights":     insightMetadata(insights),
	})

	uc.createMemoryRecord(ctx, &model.MemoryRecord{
		UserID:           user.ID,
		InteractionID:    interaction.ID,
		ExternalMemoryID: externalID,
		Content:          content,
		Tags:             insights.Tags,
	})

	return replyTextSaved, nil
}

func (uc *UseCases) ingestMedia(ctx context.Context, user *model.User, msg *model.InboundMessage, msgType types.MessageType) (string, error) {
	caption := model.SanitizeContent(msg.Body)

	interaction, created, err := uc.repo.Interaction().Create(ctx, &model.Interaction{
		UserID:      user.ID,
		MessageSID:  msg.MessageSID,
		MessageType: msgType,
		Content:     caption,
		MediaURL:    msg.MediaURL,
	})
	if err != nil {
		return replyDBError, goerr.Wrap(err, "failed to store interaction", goerr.V("sid", msg.MessageSID))
	}
	if !created {
		return replyDuplicate, nil
	}

	if uc.media == nil {
		logging.From(ctx).Warn("no media processor configured, attachment skipped", "sid", msg.MessageSID)
		return mediaIssueReply(msgType), nil
	}

	processed, err := uc.media.Process(ctx, msg.MediaURL, msgType, msg.MediaContentType)
	if err != nil {
		errutil.Handle(ctx, err, "media processing failed")
		return mediaIssueReply(msgType), nil
	}

	if err := uc.repo.Interaction().UpdateMedia(ctx, interaction.ID, processed.Path, processed.Hash, processed.Transcript); err != nil {
		// The memory pipeline still runs on the processed result.
		logging.From(ctx).Warn("failed to backfill media fields",
			"error", err, "interaction_id", interaction.ID)
	}

	switch msgType {
	case types.MessageTypeImage:
		return uc.ingestImage(ctx, user, interaction, caption, processed), nil
	case types.MessageTypeAudio:
		return uc.ingestAudio(ctx, user, interaction, processed), nil
	default:
		return uc.ingestGenericMedia(ctx, user, interaction, caption, processed), nil
	}
}

func (uc *UseCases) ingestImage(ctx context.Context, user *model.User, interaction *model.Interaction, caption string, processed *interfaces.ProcessedMedia) string {
	image, err := os.ReadFile(processed.Path)
	if err != nil {
		logging.From(ctx).Warn("failed to read stored image, description degrades",
			"error", err, "path", processed.Path)
	}

	analysis := uc.analyzeImage(ctx, image, filepath.Base(processed.Path), caption)

	content := analysis.Description
	if caption != "" {
		content = fmt.Sprintf("Image with caption '%s': %s", caption, analysis.Description)
	}

	externalID := uc.addSemantic(ctx, analysis.Description, user.ID, map[string]any{
		"source":       "whatsapp",
		"message_type": types.MessageTypeImage.String(),
		"content_type": types.MessageTypeImage.String(),
		"file_path":    processed.Path,
		"content_hash": processed.Hash,
		"insights":     insightMetadata(analysis.Insights),
	})

	uc.createMemoryRecord(ctx, &model.MemoryRecord{
		UserID:           user.ID,
		InteractionID:    interaction.ID,
		ExternalMemoryID: externalID,
		Content:          content,
		Tags:             analysis.Insights.Tags,
	})

	if externalID == "" {
		return replyImageDegraded
	}
	return replyImageSaved
}

func (uc *UseCases) ingestAudio(ctx context.Context, user *model.User, interaction *model.Interaction, processed *interfaces.ProcessedMedia) string {
	transcript := processed.Transcript

	var insights model.Insights
	var content, reply string
	if transcript != "" {
		insights = uc.analyze(ctx, transcript, types.MessageTypeAudio)
		content = "Voice message: " + transcript
		reply = voiceTranscriptReply(transcript)
	} else {
		insights = model.Insights{Tags: []string{"voice"}, Category: "audio", Sentiment: types.SentimentNeutral}
		content = "Voice message (transcript unavailable)"
		reply = replyVoiceSaved
	}

	externalID := uc.addSemantic(ctx, content, user.ID, map[string]any{
		"source":       "whatsapp",
		"message_type": types.MessageTypeAudio.String(),
		"content_type": types.MessageTypeAudio.String(),
		"file_path":    processed.Path,
		"content_hash": processed.Hash,
		"insights":     insightMetadata(insights),
	})

	uc.createMemoryRecord(ctx, &model.MemoryRecord{
		UserID:           user.ID,
		InteractionID:    interaction.ID,
		ExternalMemoryID: externalID,
		Content:          content,
		Tags:             insights.Tags,
	})

	return reply
}

// ingestGenericMedia handles attachments that are neither images nor
// audio: the file is kept, the caption (or a placeholder) becomes the
// memory content.
func (uc *UseCases) ingestGenericMedia(ctx context.Context, user *model.User, interaction *model.Interaction, caption string, processed *interfaces.ProcessedMedia) string {
	content := caption
	if content == "" {
		content = "Media file shared by user"
	}

	insights := uc.analyze(ctx, content, types.MessageTypeMedia)
	externalID := uc.addSemantic(ctx, content, user.ID, map[string]any{
		"source":       "whatsapp",
		"message_type": types.MessageTypeMedia.String(),
		"content_type": types.MessageTypeMedia.String(),
		"file_path":    processed.Path,
		"content_hash": processed.Hash,
		"insights":     insightMetadata(insights),
	})

	uc.createMemoryRecord(ctx, &model.MemoryRecord{
		UserID:           user.ID,
		InteractionID:    interaction.ID,
		ExternalMemoryID: externalID,
		Content:          content,
		Tags:             insights.Tags,
	})

	return replyTextSaved
}

// createMemoryRecord persists the relational memory record. The record
// is written even when the semantic backend degraded (empty external
// ID); persistence failures here are logged, not surfaced, because the
// interaction is already committed and acknowledged.
func (uc *UseCases) createMemoryRecord(ctx context.Context, record *model.MemoryRecord) {
	if _, err := uc.repo.Memory().Create(ctx, record); err != nil {
		errutil.Handle(ctx, err, "failed to persist memory record")
	}
}

func (uc *UseCases) analyze(ctx context.Context, content string, contentType types.MessageType) model.Insights {
	if uc.insight == nil {
		return model.DefaultInsights()
	}
	return uc.insight.Analyze(ctx, content, contentType)
}

func (uc *UseCases) analyzeImage(ctx context.Context, image []byte, filename, caption string) interfaces.ImageAnalysis {
	if uc.insight == nil {
		return interfaces.ImageAnalysis{
			Description: "Image file: " + filename,
			Insights:    model.DefaultInsights(),
		}
	}
	return uc.insight.AnalyzeImage(ctx, image, filename, caption)
}

// ManualMemoryInput is an API-originated memory creation request
type ManualMemoryInput struct {
	UserID      types.UserID
	Content     string
	ContentType types.MessageType
	Metadata    map[string]any
}

// AddManualMemory stores a memory that did not arrive over the chat
// transport. A synthetic interaction anchors it in the relational
// store.
func (uc *UseCases) AddManualMemory(ctx context.Context, input ManualMemoryInput) (*model.MemoryRecord, error) {
	if input.Content == "" {
		return nil, goerr.New("memory content is required")
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = types.MessageTypeText
	}
	if err := contentType.Validate(); err != nil {
		return nil, err
	}

	user, err := uc.repo.User().GetByID(ctx, input.UserID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve user", goerr.V("user_id", input.UserID))
	}

	content := model.SanitizeContent(input.Content)
	interaction, _, err := uc.repo.Interaction().Create(ctx, &model.Interaction{
		UserID:      user.ID,
		MessageSID:  types.MessageSID(fmt.Sprintf("api_%d", uc.now().UnixNano())),
		MessageType: contentType,
		Content:     content,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store interaction")
	}

	insights := uc.analyze(ctx, content, contentType)

	metadata := map[string]any{
		"source":       "api",
		"content_type": contentType.String(),
		"created_at":   uc.now().UTC().Format(time.RFC3339),
		"insights":     insightMetadata(insights),
	}
	for key, value := range input.Metadata {
		metadata[key] = value
	}

	externalID := uc.addSemantic(ctx, content, user.ID, metadata)

	record := &model.MemoryRecord{
		UserID:           user.ID,
		InteractionID:    interaction.ID,
		ExternalMemoryID: externalID,
		Content:          content,
		Tags:             insights.Tags,
	}
	stored, err := uc.repo.Memory().Create(ctx, record)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist memory record")
	}
	return stored, nil
}
