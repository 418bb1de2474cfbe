package models

import "time"

// Feedback channels recognized by Enterpret.
const (
	ChannelChat      = "chat"
	ChannelEmail     = "email"
	ChannelSMS       = "sms"
	ChannelSocial    = "social"
	ChannelMessaging = "messaging"
	ChannelVoice     = "voice"
	ChannelOther     = "other"
)

// FeedbackSource identifies imported records on the Enterpret side.
const FeedbackSource = "gladly"

// FeedbackIDPrefix prefixes the source conversation id to form the
// destination record id. Re-importing the same conversation always yields
// the same id, which is what makes repeated runs safe.
const FeedbackIDPrefix = "gladly-"

// FeedbackRecord is the Enterpret-side unit of imported data, one per
// source conversation. Optional fields are omitted entirely when the source
// data is absent, never sent as null or empty placeholders.
type FeedbackRecord struct {
	ID               string            `json:"id"`
	Source           string            `json:"source"`
	Channel          string            `json:"channel"`
	Timestamp        time.Time         `json:"timestamp"`
	Status           string            `json:"status,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Agent            *FeedbackAgent    `json:"agent,omitempty"`
	Customer         *FeedbackCustomer `json:"customer,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	Content          string            `json:"content"`
	CustomAttributes map[string]string `json:"customAttributes,omitempty"`
}

// FeedbackAgent references the handling agent, when known.
type FeedbackAgent struct {
	ID string `json:"id"`
}

// FeedbackCustomer is the customer enrichment attached to a record.
type FeedbackCustomer struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}
