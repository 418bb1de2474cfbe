package transform

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayamjn/enterpret-gladly/internal/models"
)

var baseTime = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func conv(id string) models.Conversation {
	return models.Conversation{ID: id, CreatedAt: baseTime, Status: "CLOSED"}
}

func item(contentType string, offset time.Duration) models.ConversationItem {
	return models.ConversationItem{
		ConversationID: "c1",
		Timestamp:      baseTime.Add(offset),
		Initiator:      models.Initiator{Type: "CUSTOMER"},
		Content:        models.ItemContent{Type: contentType, Content: "hi", Body: "hi"},
	}
}

func TestConvertMissingID(t *testing.T) {
	_, err := Convert(models.Conversation{CreatedAt: baseTime}, nil, nil)
	require.Error(t, err)

	var te *TransformError
	require.True(t, errors.As(err, &te), "must be a TransformError")
}

func TestConvertMissingCreatedAt(t *testing.T) {
	_, err := Convert(models.Conversation{ID: "c1"}, nil, nil)
	require.Error(t, err)

	var te *TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "c1", te.ConversationID)
}

func TestConvertNoItems(t *testing.T) {
	rec, err := Convert(conv("c1"), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ChannelOther, rec.Channel)
	assert.Empty(t, rec.Content)
	assert.Equal(t, "gladly-c1", rec.ID)
	assert.Equal(t, "gladly", rec.Source)
	assert.True(t, rec.Timestamp.Equal(baseTime))
}

func TestConvertDeterministic(t *testing.T) {
	c := conv("c1")
	c.TopicIDs = []string{"t1", "t2"}
	c.CustomAttributes = []models.CustomAttribute{{ID: "plan", Value: "pro"}}
	items := []models.ConversationItem{
		item(models.ContentChatMessage, time.Minute),
		item(models.ContentEmail, 2*time.Minute),
	}
	customer := &models.Customer{ID: "cust-1", Name: "Ada"}

	a, err := Convert(c, items, customer)
	require.NoError(t, err)
	b, err := Convert(c, items, customer)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb), "identical inputs must produce identical records")
}

func TestChannelInference(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  string
	}{
		{"empty", nil, models.ChannelOther},
		{"single chat", []string{models.ContentChatMessage}, models.ChannelChat},
		{"majority wins", []string{models.ContentChatMessage, models.ContentChatMessage, models.ContentEmail}, models.ChannelChat},
		{"majority wins regardless of order", []string{models.ContentEmail, models.ContentChatMessage, models.ContentChatMessage}, models.ChannelChat},
		{"tie goes to first seen", []string{models.ContentChatMessage, models.ContentEmail}, models.ChannelChat},
		{"tie goes to first seen reversed", []string{models.ContentEmail, models.ContentChatMessage}, models.ChannelEmail},
		{"social grouping", []string{models.ContentFacebook, models.ContentTwitter, models.ContentInstagram}, models.ChannelSocial},
		{"voice grouping", []string{models.ContentPhoneCall, models.ContentVoicemail}, models.ChannelVoice},
		{"whatsapp is messaging", []string{models.ContentWhatsApp}, models.ChannelMessaging},
		{"unknown type is other", []string{"SOMETHING_NEW"}, models.ChannelOther},
		{"activity is other", []string{models.ContentCustomerActivity}, models.ChannelOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]models.ConversationItem, len(tt.types))
			for i, ct := range tt.types {
				items[i] = item(ct, time.Duration(i)*time.Minute)
			}
			assert.Equal(t, tt.want, inferChannel(items))
		})
	}
}

func TestContentChronologicalOrder(t *testing.T) {
	// Array order T2 then T1; rendered content must show T1 first.
	t1 := item(models.ContentChatMessage, time.Minute)
	t1.Content.Content = "first"
	t2 := item(models.ContentChatMessage, 2*time.Minute)
	t2.Content.Content = "second"

	rec, err := Convert(conv("c1"), []models.ConversationItem{t2, t1}, nil)
	require.NoError(t, err)

	first := strings.Index(rec.Content, "first")
	second := strings.Index(rec.Content, "second")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second, "blocks must appear in ascending timestamp order")
}

func TestRenderItem(t *testing.T) {
	ts := "[2026-02-01T12:00:00Z]"
	answered := baseTime
	completed := baseTime.Add(42 * time.Second)

	tests := []struct {
		name    string
		content models.ItemContent
		want    string
	}{
		{
			"chat",
			models.ItemContent{Type: models.ContentChatMessage, Content: "hello"},
			ts + " CUSTOMER: hello",
		},
		{
			"email with subject",
			models.ItemContent{Type: models.ContentEmail, Subject: "Help", BodyPlainText: "please"},
			ts + " CUSTOMER - EMAIL:\nSubject: Help\nplease",
		},
		{
			"email without subject",
			models.ItemContent{Type: models.ContentEmail, BodyPlainText: "please"},
			ts + " CUSTOMER - EMAIL:\nplease",
		},
		{
			"email body falls back to content",
			models.ItemContent{Type: models.ContentEmail, Content: "<p>html</p>"},
			ts + " CUSTOMER - EMAIL:\n<p>html</p>",
		},
		{
			"sms",
			models.ItemContent{Type: models.ContentSMS, Body: "ok"},
			ts + " CUSTOMER - SMS: ok",
		},
		{
			"call with duration",
			models.ItemContent{Type: models.ContentPhoneCall, AnsweredAt: &answered, CompletedAt: &completed},
			ts + " CUSTOMER - CALL: Duration 42s",
		},
		{
			"call missing completedAt",
			models.ItemContent{Type: models.ContentPhoneCall, AnsweredAt: &answered},
			ts + " CUSTOMER - CALL: Duration unknown",
		},
		{
			"note",
			models.ItemContent{Type: models.ContentNote, Body: "internal"},
			ts + " NOTE: internal",
		},
		{
			"status change",
			models.ItemContent{Type: models.ContentStatusChange, Status: "CLOSED"},
			ts + " STATUS CHANGED TO: CLOSED",
		},
		{
			"activity",
			models.ItemContent{Type: models.ContentCustomerActivity, Title: "Page viewed", Body: "/pricing"},
			ts + " ACTIVITY: Page viewed\n/pricing",
		},
		{
			"topics added only",
			models.ItemContent{Type: models.ContentTopicChange, AddedTopicIDs: []string{"t1", "t2"}},
			ts + " TOPICS ADDED: t1, t2",
		},
		{
			// The source system lost one of these lines to a single-slot
			// variable; this implementation deliberately emits both.
			"topics added and removed",
			models.ItemContent{Type: models.ContentTopicChange, AddedTopicIDs: []string{"t1"}, RemovedTopicIDs: []string{"t2"}},
			ts + " TOPICS ADDED: t1\n" + ts + " TOPICS REMOVED: t2",
		},
		{
			"voicemail skipped",
			models.ItemContent{Type: models.ContentVoicemail},
			"",
		},
		{
			"unknown skipped",
			models.ItemContent{Type: "MYSTERY"},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := models.ConversationItem{
				Timestamp: baseTime,
				Initiator: models.Initiator{Type: "CUSTOMER"},
				Content:   tt.content,
			}
			assert.Equal(t, tt.want, renderItem(it))
		})
	}
}

func TestContentBlocksJoinedByBlankLine(t *testing.T) {
	a := item(models.ContentChatMessage, 0)
	a.Content.Content = "one"
	b := item(models.ContentChatMessage, time.Minute)
	b.Content.Content = "two"

	rec, err := Convert(conv("c1"), []models.ConversationItem{a, b}, nil)
	require.NoError(t, err)
	assert.Contains(t, rec.Content, "one\n\n[")
}

func TestSkippedItemsProduceNoEmptyBlocks(t *testing.T) {
	a := item(models.ContentChatMessage, 0)
	a.Content.Content = "one"
	skip := item(models.ContentVoicemail, time.Second)
	b := item(models.ContentChatMessage, time.Minute)
	b.Content.Content = "two"

	rec, err := Convert(conv("c1"), []models.ConversationItem{a, skip, b}, nil)
	require.NoError(t, err)
	assert.NotContains(t, rec.Content, "\n\n\n", "skipped items must not leave gaps")
}

func TestCustomerMapping(t *testing.T) {
	customer := &models.Customer{
		ID:   "cust-1",
		Name: "Ada",
		Emails: []models.ContactDetail{
			{Original: "a@x.com", Primary: false},
			{Original: "b@x.com", Primary: true},
		},
		Phones: []models.ContactDetail{
			{Original: "+1 (555) 010-2030", Normalized: "+15550102030", Primary: true},
		},
		ExternalCustomerID: "ext-9",
	}

	rec, err := Convert(conv("c1"), nil, customer)
	require.NoError(t, err)
	require.NotNil(t, rec.Customer)
	assert.Equal(t, "b@x.com", rec.Customer.Email, "primary email wins")
	assert.Equal(t, "+15550102030", rec.Customer.Phone, "normalized form preferred")
	assert.Equal(t, "ext-9", rec.Customer.ExternalID)
}

func TestCustomerFallbackToFirstEntry(t *testing.T) {
	customer := &models.Customer{
		ID: "cust-1",
		Emails: []models.ContactDetail{
			{Original: "first@x.com"},
			{Original: "second@x.com"},
		},
	}

	rec, err := Convert(conv("c1"), nil, customer)
	require.NoError(t, err)
	assert.Equal(t, "first@x.com", rec.Customer.Email)
}

func TestOptionalFieldsOmitted(t *testing.T) {
	rec, err := Convert(conv("c1"), nil, nil)
	require.NoError(t, err)

	assert.Nil(t, rec.Agent)
	assert.Nil(t, rec.Customer)
	assert.Nil(t, rec.Tags)
	assert.Nil(t, rec.CustomAttributes)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	for _, field := range []string{"agent", "customer", "tags", "customAttributes"} {
		assert.NotContains(t, string(data), `"`+field+`"`, "absent optionals must be omitted, not null")
	}
}

func TestTagsAndAgent(t *testing.T) {
	agent := "agent-7"
	c := conv("c1")
	c.AgentID = &agent
	c.TopicIDs = []string{"billing", "refund"}

	rec, err := Convert(c, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, rec.Agent)
	assert.Equal(t, "agent-7", rec.Agent.ID)
	assert.Equal(t, []string{"billing", "refund"}, rec.Tags)
}

func TestCollapseAttributes(t *testing.T) {
	c := conv("c1")
	c.CustomAttributes = []models.CustomAttribute{
		{ID: "plan", Value: "pro"},
		{ID: "", Value: "dropped"},
		{ID: "dropped", Value: ""},
		{ID: "region", Value: "eu"},
	}

	rec, err := Convert(c, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"plan": "pro", "region": "eu"}, rec.CustomAttributes)
}

func TestMetadata(t *testing.T) {
	c := conv("c1")
	c.InboxID = "inbox-1"

	rec, err := Convert(c, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"conversationId": "c1", "inboxId": "inbox-1"}, rec.Metadata)
}
