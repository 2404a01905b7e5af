package authutils

import (
	"context"
	"testing"
	"time"

	"story-engine/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestVerifyToken_RoundTrip(t *testing.T) {
	v, err := NewJWTVerifier(testSecret, nil)
	require.NoError(t, err)

	playerID := uuid.New()
	token, err := IssueToken(testSecret, playerID, time.Minute)
	require.NoError(t, err)

	claims, err := v.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, playerID, claims.PlayerID)
}

func TestVerifyToken_Rejects(t *testing.T) {
	v, err := NewJWTVerifier(testSecret, nil)
	require.NoError(t, err)

	expired, err := IssueToken(testSecret, uuid.New(), -time.Minute)
	require.NoError(t, err)
	_, err = v.VerifyToken(context.Background(), expired)
	assert.ErrorIs(t, err, models.ErrTokenExpired)

	foreign, err := IssueToken("other-secret", uuid.New(), time.Minute)
	require.NoError(t, err)
	_, err = v.VerifyToken(context.Background(), foreign)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)

	_, err = v.VerifyToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, models.ErrTokenMalformed)
}

func TestNewJWTVerifier_EmptySecret(t *testing.T) {
	_, err := NewJWTVerifier("", nil)
	assert.Error(t, err)
}
