package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railledger/pkg/domain"
	dErrors "railledger/pkg/domain-errors"
)

func newTestService() *JWTService {
	return NewJWTService("test-signing-key", "railledger-test", "railledger-api")
}

func TestValidateToken(t *testing.T) {
	svc := newTestService()

	t.Run("round-trips actor claims", func(t *testing.T) {
		token, err := svc.GenerateActorToken("user-42", domain.ActorUser, time.Minute)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-42", claims.ActorID)
		assert.Equal(t, domain.ActorUser, claims.ActorType)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token, err := svc.GenerateActorToken("user-42", domain.ActorUser, -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects token signed with another key", func(t *testing.T) {
		other := NewJWTService("different-key", "railledger-test", "railledger-api")
		token, err := other.GenerateActorToken("user-42", domain.ActorUser, time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		require.Error(t, err)
	})

	t.Run("rejects unknown actor type claim", func(t *testing.T) {
		token, err := svc.GenerateActorToken("user-42", domain.ActorType("contractor"), time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})
}
