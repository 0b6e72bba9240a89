package edge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/consent/extension"
	"consentd/internal/platform/kafka/consumer"
)

func updateMessage(t *testing.T, req UpdateRequest) *consumer.Message {
	t.Helper()
	value, err := json.Marshal(req)
	require.NoError(t, err)
	return &consumer.Message{Topic: "consent.update.requests", Value: value}
}

func decodeHandle(t *testing.T, value []byte) map[string]any {
	t.Helper()
	var handle map[string]any
	require.NoError(t, json.Unmarshal(value, &handle))
	return handle
}

func TestResponder_AnswersWithStampedHandle(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewResponder(pub, "acks", discardLogger())

	err := r.Handle(context.Background(), updateMessage(t, UpdateRequest{
		EventID:   "evt-1",
		Timestamp: "2021-03-29T02:35:18Z",
		Consents:  map[string]any{"collect": map[string]any{"val": "y"}},
	}))
	require.NoError(t, err)

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "acks", msgs[0].Topic)
	assert.Equal(t, extension.Name, string(msgs[0].Key))
	assert.Equal(t, "evt-1", msgs[0].Headers["request_event_id"])

	assert.Equal(t, map[string]any{
		"type": extension.EventSourceConsentPreference,
		"payload": []any{map[string]any{
			"collect":  map[string]any{"val": "y"},
			"metadata": map[string]any{"time": "2021-03-29T02:35:18Z"},
		}},
	}, decodeHandle(t, msgs[0].Value))
}

func TestResponder_KeepsExistingTimestamp(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewResponder(pub, "acks", nil)

	require.NoError(t, r.Handle(context.Background(), updateMessage(t, UpdateRequest{
		EventID:   "evt-2",
		Timestamp: "2022-01-01T00:00:00Z",
		Consents: map[string]any{
			"collect":  map[string]any{"val": "n"},
			"metadata": map[string]any{"time": "2021-03-29T02:35:18Z"},
		},
	})))

	handle := decodeHandle(t, pub.published()[0].Value)
	first := handle["payload"].([]any)[0].(map[string]any)
	assert.Equal(t, "2021-03-29T02:35:18Z", first["metadata"].(map[string]any)["time"])
}

func TestResponder_SkipsUnusableRequests(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewResponder(pub, "acks", nil)
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, &consumer.Message{Value: []byte("{not-json")}))
	require.NoError(t, r.Handle(ctx, updateMessage(t, UpdateRequest{EventID: "evt-3"})))
	assert.Empty(t, pub.published())
}

func TestResponder_PublishFailureIsReturned(t *testing.T) {
	pub := &recordingPublisher{}
	pub.setErr(errors.New("broker down"))
	r := NewResponder(pub, "acks", nil)

	err := r.Handle(context.Background(), updateMessage(t, UpdateRequest{
		EventID:  "evt-4",
		Consents: map[string]any{"collect": map[string]any{"val": "y"}},
	}))
	assert.Error(t, err)
}
