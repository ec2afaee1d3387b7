package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	t.Run("Mint And Validate Round Trip", func(t *testing.T) {
		token, err := m.GenerateToken("alice")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := m.ParseAndValidate(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Operator)
		assert.Equal(t, "alice", claims.Subject)
	})

	t.Run("Wrong Secret Is Rejected", func(t *testing.T) {
		token, err := m.GenerateToken("alice")
		require.NoError(t, err)

		other := NewJWTManager("other-secret", time.Hour)
		_, err = other.ParseAndValidate(token)
		assert.Error(t, err)
	})

	t.Run("Expired Token Is Rejected", func(t *testing.T) {
		expired := NewJWTManager("test-secret", -time.Minute)
		token, err := expired.GenerateToken("alice")
		require.NoError(t, err)

		_, err = m.ParseAndValidate(token)
		assert.Error(t, err)
	})

	t.Run("Garbage Is Rejected", func(t *testing.T) {
		_, err := m.ParseAndValidate("not.a.token")
		assert.Error(t, err)
	})
}
