package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestFromRecord(t *testing.T) {
	ts := time.Date(2021, 3, 29, 2, 35, 18, 0, time.UTC)
	msg := fromRecord(&kgo.Record{
		Topic:     "consent.preferences.handles",
		Partition: 2,
		Offset:    41,
		Key:       []byte("com.adobe.edge.consent"),
		Value:     []byte(`{"type":"consent:preferences"}`),
		Timestamp: ts,
		Headers: []kgo.RecordHeader{
			{Key: "event_name", Value: []byte("Edge Consent Preference Handle")},
		},
	})

	assert.Equal(t, "consent.preferences.handles", msg.Topic)
	assert.Equal(t, int32(2), msg.Partition)
	assert.Equal(t, int64(41), msg.Offset)
	assert.Equal(t, "com.adobe.edge.consent", string(msg.Key))
	assert.Equal(t, ts, msg.Timestamp)
	assert.Equal(t, map[string]string{"event_name": "Edge Consent Preference Handle"}, msg.Headers)
}

func TestFromRecord_NoHeaders(t *testing.T) {
	msg := fromRecord(&kgo.Record{Topic: "t"})
	assert.Nil(t, msg.Headers)
}

func TestHandlerFunc(t *testing.T) {
	want := errors.New("handled")
	var got *Message
	h := HandlerFunc(func(_ context.Context, msg *Message) error {
		got = msg
		return want
	})

	msg := &Message{Topic: "t"}
	assert.ErrorIs(t, h.Handle(context.Background(), msg), want)
	assert.Same(t, msg, got)
}
