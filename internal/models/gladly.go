// Package models defines the data shapes exchanged with the Gladly and
// Enterpret platforms.
package models

import "time"

// Conversation is a Gladly conversation as returned by the listing endpoint.
// Read-only to the pipeline.
type Conversation struct {
	ID               string            `json:"id"`
	CustomerID       string            `json:"customerId,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	Status           string            `json:"status,omitempty"`
	InboxID          string            `json:"inboxId,omitempty"`
	AgentID          *string           `json:"agentId,omitempty"`
	TopicIDs         []string          `json:"topicIds,omitempty"`
	CustomAttributes []CustomAttribute `json:"customAttributes,omitempty"`
}

// CustomAttribute is a single id/value pair attached to a conversation.
type CustomAttribute struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Gladly conversation item content types. The set is closed: the transformer
// switches over these and skips anything else.
const (
	ContentChatMessage      = "CHAT_MESSAGE"
	ContentEmail            = "EMAIL"
	ContentSMS              = "SMS"
	ContentFacebook         = "FACEBOOK_MESSENGER"
	ContentTwitter          = "TWITTER"
	ContentInstagram        = "INSTAGRAM_DIRECT"
	ContentWhatsApp         = "WHATSAPP"
	ContentPhoneCall        = "PHONE_CALL"
	ContentVoicemail        = "VOICEMAIL"
	ContentNote             = "CONVERSATION_NOTE"
	ContentTopicChange      = "TOPIC_CHANGE"
	ContentStatusChange     = "CONVERSATION_STATUS_CHANGE"
	ContentCustomerActivity = "CUSTOMER_ACTIVITY"
)

// ConversationItem is a single message or event within a conversation.
// The source does not guarantee ordering; callers must sort by Timestamp.
type ConversationItem struct {
	ID             string      `json:"id,omitempty"`
	ConversationID string      `json:"conversationId"`
	Timestamp      time.Time   `json:"timestamp"`
	Initiator      Initiator   `json:"initiator"`
	Content        ItemContent `json:"content"`
}

// Initiator identifies who produced an item (CUSTOMER, AGENT, SYSTEM).
type Initiator struct {
	Type string `json:"type"`
}

// ItemContent is the type-tagged payload of a conversation item. Only the
// fields matching Type are populated; the rest stay at their zero value.
type ItemContent struct {
	Type string `json:"type"`

	// CHAT_MESSAGE
	Content string `json:"content,omitempty"`

	// EMAIL
	Subject       string `json:"subject,omitempty"`
	BodyPlainText string `json:"bodyPlainText,omitempty"`

	// SMS, CONVERSATION_NOTE
	Body string `json:"body,omitempty"`

	// PHONE_CALL
	AnsweredAt  *time.Time `json:"answeredAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// TOPIC_CHANGE
	AddedTopicIDs   []string `json:"addedTopicIds,omitempty"`
	RemovedTopicIDs []string `json:"removedTopicIds,omitempty"`

	// CONVERSATION_STATUS_CHANGE
	Status string `json:"status,omitempty"`

	// CUSTOMER_ACTIVITY
	Title string `json:"title,omitempty"`
}

// Customer is a Gladly customer profile.
type Customer struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name,omitempty"`
	Emails             []ContactDetail `json:"emails,omitempty"`
	Phones             []ContactDetail `json:"phones,omitempty"`
	ExternalCustomerID string          `json:"externalCustomerId,omitempty"`
}

// ContactDetail is one email address or phone number on a customer profile.
// Normalized, when present, is preferred over Original.
type ContactDetail struct {
	Original   string `json:"original"`
	Normalized string `json:"normalized,omitempty"`
	Primary    bool   `json:"primary,omitempty"`
}

// PrimaryValue returns the normalized (preferred) or original value of the
// entry flagged primary, falling back to the first entry when none is flagged.
// Returns "" for an empty list.
func PrimaryValue(details []ContactDetail) string {
	if len(details) == 0 {
		return ""
	}
	chosen := details[0]
	for _, d := range details {
		if d.Primary {
			chosen = d
			break
		}
	}
	if chosen.Normalized != "" {
		return chosen.Normalized
	}
	return chosen.Original
}
