// Package transform converts Gladly conversations into Enterpret feedback
// records. Everything here is pure: no I/O, no retries, deterministic for
// identical inputs.
package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sayamjn/enterpret-gladly/internal/models"
)

// TransformError reports a conversation that could not be converted. It
// carries the conversation id so the caller can log and skip it.
type TransformError struct {
	ConversationID string
	Reason         string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform conversation %q: %s", e.ConversationID, e.Reason)
}

// channelFor maps a Gladly item content type to an Enterpret channel.
// Unrecognized types land in "other".
func channelFor(contentType string) string {
	switch contentType {
	case models.ContentChatMessage:
		return models.ChannelChat
	case models.ContentEmail:
		return models.ChannelEmail
	case models.ContentSMS:
		return models.ChannelSMS
	case models.ContentFacebook, models.ContentTwitter, models.ContentInstagram:
		return models.ChannelSocial
	case models.ContentWhatsApp:
		return models.ChannelMessaging
	case models.ContentPhoneCall, models.ContentVoicemail:
		return models.ChannelVoice
	default:
		return models.ChannelOther
	}
}

// Convert builds the feedback record for one conversation. customer may be
// nil when enrichment failed or the conversation has no customer.
func Convert(conv models.Conversation, items []models.ConversationItem, customer *models.Customer) (models.FeedbackRecord, error) {
	if conv.ID == "" {
		return models.FeedbackRecord{}, &TransformError{ConversationID: conv.ID, Reason: "missing conversation id"}
	}
	if conv.CreatedAt.IsZero() {
		return models.FeedbackRecord{}, &TransformError{ConversationID: conv.ID, Reason: "missing createdAt"}
	}

	rec := models.FeedbackRecord{
		ID:        models.FeedbackIDPrefix + conv.ID,
		Source:    models.FeedbackSource,
		Channel:   inferChannel(items),
		Timestamp: conv.CreatedAt,
		Status:    conv.Status,
		Metadata:  buildMetadata(conv),
		Content:   assembleContent(items),
	}

	if conv.AgentID != nil && *conv.AgentID != "" {
		rec.Agent = &models.FeedbackAgent{ID: *conv.AgentID}
	}
	if customer != nil {
		rec.Customer = mapCustomer(customer)
	}
	if len(conv.TopicIDs) > 0 {
		rec.Tags = append([]string(nil), conv.TopicIDs...)
	}
	if attrs := collapseAttributes(conv.CustomAttributes); len(attrs) > 0 {
		rec.CustomAttributes = attrs
	}

	return rec, nil
}

// inferChannel counts items per channel and returns the channel that was
// first to reach the highest count. Ties therefore go to whichever channel
// hit the max earlier in the item list, not to an alphabetical winner.
func inferChannel(items []models.ConversationItem) string {
	if len(items) == 0 {
		return models.ChannelOther
	}

	counts := make(map[string]int)
	best := models.ChannelOther
	bestCount := 0
	for _, it := range items {
		ch := channelFor(it.Content.Type)
		counts[ch]++
		if counts[ch] > bestCount {
			best = ch
			bestCount = counts[ch]
		}
	}
	return best
}

// assembleContent renders each item as a text block and joins them in
// chronological order. Items with types outside the closed rendering set
// contribute nothing.
func assembleContent(items []models.ConversationItem) string {
	sorted := make([]models.ConversationItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	blocks := make([]string, 0, len(sorted))
	for _, it := range sorted {
		if block := renderItem(it); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// renderItem formats one conversation item. The switch is the closed set of
// content variants; the default case is an explicit skip.
func renderItem(it models.ConversationItem) string {
	ts := it.Timestamp.UTC().Format(time.RFC3339)
	who := it.Initiator.Type
	c := it.Content

	switch c.Type {
	case models.ContentChatMessage:
		return fmt.Sprintf("[%s] %s: %s", ts, who, c.Content)

	case models.ContentEmail:
		body := c.BodyPlainText
		if body == "" {
			body = c.Content
		}
		if c.Subject != "" {
			return fmt.Sprintf("[%s] %s - EMAIL:\nSubject: %s\n%s", ts, who, c.Subject, body)
		}
		return fmt.Sprintf("[%s] %s - EMAIL:\n%s", ts, who, body)

	case models.ContentSMS:
		return fmt.Sprintf("[%s] %s - SMS: %s", ts, who, c.Body)

	case models.ContentPhoneCall:
		duration := "unknown"
		if c.AnsweredAt != nil && c.CompletedAt != nil {
			secs := int(c.CompletedAt.Sub(*c.AnsweredAt).Seconds())
			duration = fmt.Sprintf("%ds", secs)
		}
		return fmt.Sprintf("[%s] %s - CALL: Duration %s", ts, who, duration)

	case models.ContentNote:
		return fmt.Sprintf("[%s] NOTE: %s", ts, c.Body)

	case models.ContentTopicChange:
		// The reference implementation held both lines in a single slot so
		// a removal overwrote an addition. Emitting both is the documented
		// choice here.
		var lines []string
		if len(c.AddedTopicIDs) > 0 {
			lines = append(lines, fmt.Sprintf("[%s] TOPICS ADDED: %s", ts, strings.Join(c.AddedTopicIDs, ", ")))
		}
		if len(c.RemovedTopicIDs) > 0 {
			lines = append(lines, fmt.Sprintf("[%s] TOPICS REMOVED: %s", ts, strings.Join(c.RemovedTopicIDs, ", ")))
		}
		return strings.Join(lines, "\n")

	case models.ContentStatusChange:
		return fmt.Sprintf("[%s] STATUS CHANGED TO: %s", ts, c.Status)

	case models.ContentCustomerActivity:
		return fmt.Sprintf("[%s] ACTIVITY: %s\n%s", ts, c.Title, c.Body)

	default:
		// Voicemail, social and messaging payloads count toward channel
		// inference but have no renderable text.
		return ""
	}
}

func buildMetadata(conv models.Conversation) map[string]string {
	md := map[string]string{"conversationId": conv.ID}
	if conv.InboxID != "" {
		md["inboxId"] = conv.InboxID
	}
	return md
}

func mapCustomer(c *models.Customer) *models.FeedbackCustomer {
	return &models.FeedbackCustomer{
		ID:         c.ID,
		Name:       c.Name,
		Email:      models.PrimaryValue(c.Emails),
		Phone:      models.PrimaryValue(c.Phones),
		ExternalID: c.ExternalCustomerID,
	}
}

// collapseAttributes flattens id/value pairs into a map, silently dropping
// entries missing either field.
func collapseAttributes(attrs []models.CustomAttribute) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.ID == "" || a.Value == "" {
			continue
		}
		out[a.ID] = a.Value
	}
	return out
}
