package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
)

func header(name, value string) *gmail.MessagePartHeader {
	return &gmail.MessagePartHeader{Name: name, Value: value}
}

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestConvertThread(t *testing.T) {
	sent := time.Date(2024, 1, 19, 15, 4, 5, 0, time.UTC)
	thread := &gmail.Thread{
		Id:      "t1",
		Snippet: "Can you approve",
		Messages: []*gmail.Message{
			{
				Id:           "m1",
				LabelIds:     []string{"INBOX", "IMPORTANT"},
				InternalDate: sent.UnixMilli(),
				Payload: &gmail.MessagePart{
					MimeType: "multipart/alternative",
					Headers: []*gmail.MessagePartHeader{
						header("Subject", "Budget sign-off"),
						header("From", `"Dana Whitfield" <Dana@Corp.com>`),
						header("To", "Me <ME@example.com>, team@corp.com"),
						header("Cc", "boss@corp.com"),
					},
					Parts: []*gmail.MessagePart{
						{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<p>html</p>")}},
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("Please approve.")}},
					},
				},
			},
			{
				Id:           "m2",
				InternalDate: sent.Add(time.Hour).UnixMilli(),
				Payload: &gmail.MessagePart{
					MimeType: "text/plain",
					Headers: []*gmail.MessagePartHeader{
						header("from", "me@example.com"),
						header("to", "dana@corp.com"),
						header("list-id", "<ops.corp.com>"),
					},
					Body: &gmail.MessagePartBody{Data: encode("On it")},
				},
			},
		},
	}

	got := convertThread(thread)

	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, "Budget sign-off", got.Subject)
	assert.Equal(t, []string{"INBOX", "IMPORTANT"}, got.Labels)
	assert.True(t, got.IsMailingList)
	require.Len(t, got.Messages, 2)

	first := got.Messages[0]
	assert.Equal(t, `"Dana Whitfield" <Dana@Corp.com>`, first.From)
	assert.Equal(t, "dana@corp.com", first.FromAddress)
	assert.Equal(t, []string{"me@example.com", "team@corp.com"}, first.To)
	assert.Equal(t, []string{"boss@corp.com"}, first.CC)
	assert.Equal(t, sent, first.ReceivedAt)
	assert.Equal(t, "Please approve.", first.Body)

	assert.Equal(t, "me@example.com", got.Messages[1].FromAddress)
	assert.Equal(t, "On it", got.Messages[1].Body)
	assert.True(t, got.OwnerInTo("me@example.com"))
}

func TestConvertThread_Defaults(t *testing.T) {
	got := convertThread(&gmail.Thread{Id: "empty"})
	assert.Equal(t, noSubject, got.Subject)
	assert.Empty(t, got.Messages)
	assert.False(t, got.IsMailingList)
}

func TestParseAddressList_Lenient(t *testing.T) {
	assert.Nil(t, parseAddressList("  "))
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, parseAddressList("A <a@x.com>, broken <<b@y.com>"))
}

func TestGetPlainTextBody_Nested(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{MimeType: "multipart/alternative", Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("nested?"))}},
			}},
			{MimeType: "application/pdf", Filename: "a.pdf"},
		},
	}
	assert.Equal(t, "nested?", getPlainTextBody(payload))
	assert.Equal(t, "", getPlainTextBody(nil))
}
