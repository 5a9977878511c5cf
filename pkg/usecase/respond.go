package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/errutil"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
)

const (
	replyTextSaved     = "Got it! I've saved your message to memory. 📝"
	replyDuplicate     = "Message processed successfully!"
	replyDBError       = "❌ Sorry, I encountered a database error. Please try again."
	replyImageSaved    = "📸 I've saved your image to memory!"
	replyImageDegraded = "📸 I received your image but had trouble saving it to memory. The image is stored safely."
	replyVoiceSaved    = "🎤 I've saved your voice message to memory!"
	replySearchError   = "❌ Sorry, I had trouble searching your memories. Please try again."
	replyListEmpty     = "🗂️ You don't have any memories saved yet. Send me some messages, images, or voice notes!"

	replyNoResults         = "🔍 I couldn't find any relevant memories. Try adding some memories first!"
	replyNoResultsForRange = "🔍 I couldn't find any relevant memories for that time period. Try a different time range or add some memories first!"

	replyHelp = "🤖 I'm your personal memory assistant!\n\n" +
		"Send me text, photos or voice notes and I'll remember them.\n" +
		"Ask things like \"what did I say about dinner last week?\" to search.\n" +
		"Send /list to see your recent memories."

	replyDeleteUnsupported = "🗑️ I can't delete memories from chat yet. " +
		"Use the memories API to remove one by its ID."

	greeting = "👋 Welcome! I'll keep track of whatever you send me: notes, " +
		"photos and voice messages. Ask me about them any time.\n\n"
)

func mediaIssueReply(msgType fmt.Stringer) string {
	return fmt.Sprintf("🔄 I received your %s but encountered an issue. Let me try again.", msgType)
}

func voiceTranscriptReply(transcript string) string {
	preview := transcript
	if runes := []rune(transcript); len(runes) > 50 {
		preview = string(runes[:50]) + "..."
	}
	return fmt.Sprintf("🎤 Got your voice message: \"%s\"", preview)
}

// searchAndRespond runs the full search pipeline and renders the chat
// reply. Search failures never leak details to the user.
func (uc *UseCases) searchAndRespond(ctx context.Context, user *model.User, rawQuery string) string {
	out, err := uc.Search(ctx, user.ID, rawQuery, 0)
	if err != nil {
		errutil.Handle(ctx, err, "memory search failed")
		return replySearchError
	}

	if len(out.Results) == 0 {
		if out.Range != nil {
			return replyNoResultsForRange
		}
		return replyNoResults
	}

	if out.Fallback {
		var sb strings.Builder
		if out.Range != nil {
			sb.WriteString("🔍 Here are your memories from that time period:\n\n")
		} else {
			sb.WriteString("🔍 Here are some recent memories:\n\n")
		}
		for i, result := range out.Results {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, result.DisplayText)
		}
		return sb.String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 Here's what I found for '%s':\n\n", rawQuery)
	for i, result := range out.Results {
		fmt.Fprintf(&sb, "%d. %s\n\n", i+1, result.DisplayText)
	}
	return sb.String()
}

// ProcessAndReply handles one inbound message and delivers the reply
// over the outbound transport. Used for deliveries processed in the
// background, where the webhook response could not carry the reply.
func (uc *UseCases) ProcessAndReply(ctx context.Context, msg *model.InboundMessage) error {
	reply, err := uc.HandleInbound(ctx, msg)
	if err != nil {
		errutil.Handle(ctx, err, "inbound message processing failed")
	}
	if reply == "" || uc.sender == nil {
		return err
	}

	if sendErr := uc.sender.SendMessage(ctx, msg.From, reply); sendErr != nil {
		logging.From(ctx).Error("failed to deliver reply",
			"error", sendErr, "to", msg.From, "sid", msg.MessageSID)
		return sendErr
	}
	return err
}
