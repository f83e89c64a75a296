package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenManager_RequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", "omniaudit", time.Hour)
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	tm, err := NewTokenManager("secret", "omniaudit", time.Hour)
	require.NoError(t, err)

	token, err := tm.GenerateToken("u-1", "alice", "admin", "starter")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "starter", claims.Tier)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	a, _ := NewTokenManager("one", "omniaudit", time.Hour)
	b, _ := NewTokenManager("two", "omniaudit", time.Hour)

	token, err := a.GenerateToken("u-1", "alice", "user", "pro_bono")
	require.NoError(t, err)
	_, err = b.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	tm, _ := NewTokenManager("secret", "omniaudit", time.Nanosecond)
	token, err := tm.GenerateToken("u-1", "alice", "user", "pro_bono")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	tok, err := ExtractToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	for _, bad := range []string{"", "Bearer", "Basic abc", "Bearer a b"} {
		_, err := ExtractToken(bad)
		assert.Error(t, err, bad)
	}
}
