package models

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// PlayerContextKey хранит uuid.UUID игрока в контексте запроса.
const PlayerContextKey contextKey = "playerID"

// WithPlayerID кладет идентификатор игрока в контекст.
func WithPlayerID(ctx context.Context, playerID uuid.UUID) context.Context {
	return context.WithValue(ctx, PlayerContextKey, playerID)
}

// PlayerIDFromContext извлекает идентификатор игрока. false, если его нет.
func PlayerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(PlayerContextKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
