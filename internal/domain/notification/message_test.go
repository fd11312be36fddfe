package notification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	valid := Message{
		ID:      "n1",
		UserID:  "u1",
		Channel: ChannelEmail,
		Type:    TypeTransactional,
		Payload: json.RawMessage(`{"to":"u1@example.com","subject":"s","body":"b"}`),
	}

	t.Run("ok", func(t *testing.T) {
		m := valid
		require.NoError(t, m.Validate())
	})

	t.Run("missing id", func(t *testing.T) {
		m := valid
		m.ID = ""
		assert.ErrorContains(t, m.Validate(), "id is required")
	})

	t.Run("missing userId", func(t *testing.T) {
		m := valid
		m.UserID = ""
		assert.ErrorContains(t, m.Validate(), "userId is required")
	})

	t.Run("bad channel", func(t *testing.T) {
		m := valid
		m.Channel = "CARRIER_PIGEON"
		assert.ErrorContains(t, m.Validate(), "invalid channel")
	})

	t.Run("bad type", func(t *testing.T) {
		m := valid
		m.Type = "SPAM"
		assert.ErrorContains(t, m.Validate(), "invalid type")
	})

	t.Run("payload not an object", func(t *testing.T) {
		m := valid
		m.Payload = json.RawMessage(`"just a string"`)
		assert.ErrorContains(t, m.Validate(), "payload must be an object")
	})

	t.Run("empty payload", func(t *testing.T) {
		m := valid
		m.Payload = nil
		assert.ErrorContains(t, m.Validate(), "payload is empty")
	})
}

func TestDecodePayloadPerChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel Channel
		raw     string
		wantErr string
	}{
		{"email ok", ChannelEmail, `{"to":"a@b.c","subject":"s","body":"b"}`, ""},
		{"email missing to", ChannelEmail, `{"subject":"s"}`, "to is required"},
		{"sms ok", ChannelSMS, `{"phoneNumber":"+123","text":"hi"}`, ""},
		{"sms missing phone", ChannelSMS, `{"text":"hi"}`, "phoneNumber is required"},
		{"push ok", ChannelPush, `{"deviceToken":"tok","title":"t","body":"b"}`, ""},
		{"push missing token", ChannelPush, `{"title":"t"}`, "deviceToken is required"},
		{"inapp ok", ChannelInApp, `{"title":"t","body":"b","link":"/x"}`, ""},
		{"inapp empty", ChannelInApp, `{}`, "title or body is required"},
		{"unknown channel", Channel("FAX"), `{"a":1}`, "unknown channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload(tt.channel, json.RawMessage(tt.raw))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			switch tt.channel {
			case ChannelEmail:
				assert.NotNil(t, p.Email)
			case ChannelSMS:
				assert.NotNil(t, p.SMS)
			case ChannelPush:
				assert.NotNil(t, p.Push)
			case ChannelInApp:
				assert.NotNil(t, p.InApp)
			}
		})
	}
}

func TestMessageNotification(t *testing.T) {
	m := Message{
		ID:            "n1",
		UserID:        "u1",
		TenantID:      "t1",
		Channel:       ChannelEmail,
		Type:          TypeAlert,
		Payload:       json.RawMessage(`{"to":"a@b.c"}`),
		CorrelationID: "corr-1",
		RetryCount:    2,
	}
	require.NoError(t, m.Validate())

	n := m.Notification()
	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, "t1", n.TenantID)
	assert.Equal(t, StatusProcessing, n.Status)
	assert.Equal(t, 2, n.RetryCount)
	assert.Equal(t, "corr-1", n.CorrelationID)
	require.NotNil(t, n.Payload.Email)
	assert.Equal(t, "a@b.c", n.Payload.Email.To)
	// unset priority defaults to MEDIUM
	assert.Equal(t, PriorityMedium, n.Priority)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, ChannelEmail.IsValid())
	assert.False(t, Channel("").IsValid())
	assert.True(t, TypeMarketing.IsValid())
	assert.False(t, Type("x").IsValid())
	assert.True(t, PriorityUrgent.IsValid())
	assert.False(t, Priority("x").IsValid())
}
