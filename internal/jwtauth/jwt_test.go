package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dErrors "sigil/pkg/domain-errors"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "sigil-test")

	t.Run("roundtrip", func(t *testing.T) {
		token, err := svc.IssueToken("ops@example.com", "admin", time.Hour)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		require.Equal(t, "ops@example.com", claims.Subject)
		require.Equal(t, "admin", claims.Role)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token, err := svc.IssueToken("ops@example.com", "admin", -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("token signed with another key rejected", func(t *testing.T) {
		other := NewService("different-key", "sigil-test")
		token, err := other.IssueToken("ops@example.com", "admin", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt")
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
