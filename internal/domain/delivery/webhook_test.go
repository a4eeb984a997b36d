package delivery

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEvent_Lifecycle(t *testing.T) {
	evt, err := NewWebhookEvent(uuid.New(), ProviderDeliveroo, []byte(`{"order":"x"}`), "sha256=abc")
	require.NoError(t, err)
	assert.Equal(t, WebhookReceived, evt.Status)

	evt.MarkValidated()
	assert.Equal(t, WebhookValidated, evt.Status)

	evt.MarkQueued()
	assert.Equal(t, WebhookQueued, evt.Status)

	evt.MarkProcessed("ext-42")
	assert.Equal(t, WebhookProcessed, evt.Status)
	assert.Equal(t, "ext-42", evt.ExternalOrderID)
	assert.True(t, evt.Status.IsTerminal())
}

func TestWebhookEvent_Rejection(t *testing.T) {
	evt, err := NewWebhookEvent(uuid.New(), ProviderJahez, []byte("{}"), "garbage")
	require.NoError(t, err)

	evt.MarkRejected("hmac mismatch")
	assert.Equal(t, WebhookRejected, evt.Status)
	assert.Equal(t, "hmac mismatch", evt.RejectReason)
	assert.True(t, evt.Status.IsTerminal())
}

func TestWebhookEvent_RetryCounter(t *testing.T) {
	evt, err := NewWebhookEvent(uuid.New(), ProviderCareem, []byte("{}"), "sig")
	require.NoError(t, err)

	evt.RecordRetry()
	evt.RecordRetry()
	assert.Equal(t, 2, evt.RetryCount)

	evt.MarkDeadLettered("retry budget exhausted")
	assert.Equal(t, WebhookDeadLettered, evt.Status)
}

func TestNewWebhookEvent_InvalidProvider(t *testing.T) {
	_, err := NewWebhookEvent(uuid.New(), ProviderCode("NOPE"), []byte("{}"), "sig")
	assert.ErrorIs(t, err, ErrInvalidProviderCode)
}
