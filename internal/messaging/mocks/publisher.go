package mocks

import (
	"context"

	"story-engine/internal/messaging"

	"github.com/stretchr/testify/mock"
)

// EventPublisher - мок messaging.EventPublisher.
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) PublishStoryEvent(ctx context.Context, event messaging.StoryEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
