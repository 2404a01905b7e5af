package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	fails     int
	published []amqp.Publishing
	keys      []string
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("channel closed")
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func TestPublishStoryEvent(t *testing.T) {
	ch := &fakeChannel{fails: 1}
	pub := NewPublisherOnChannel(ch, "story_events", zap.NewNop())

	passed := true
	err := pub.PublishStoryEvent(context.Background(), StoryEvent{
		Type:      EventJudgmentCompleted,
		SessionID: "s1",
		ChapterID: "prologue",
		NodeID:    "p3",
		Passed:    &passed,
	})
	require.NoError(t, err)
	require.Len(t, ch.published, 1, "retry after a failed attempt")

	msg := ch.published[0]
	assert.Equal(t, "story_events", ch.keys[0])
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)

	var got StoryEvent
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, EventJudgmentCompleted, got.Type)
	assert.False(t, got.OccurredAt.IsZero())
	require.NotNil(t, got.Passed)
	assert.True(t, *got.Passed)
}

func TestPublishStoryEvent_GivesUp(t *testing.T) {
	ch := &fakeChannel{fails: publishAttempts}
	pub := NewPublisherOnChannel(ch, "story_events", zap.NewNop())

	err := pub.PublishStoryEvent(context.Background(), StoryEvent{Type: EventGameSaved})
	assert.Error(t, err)
	assert.Empty(t, ch.published)
}
