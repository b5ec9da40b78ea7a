package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestStore_StartsEmpty(t *testing.T) {
	s := NewStore()
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.Get())
	tok, ok := s.Token()
	assert.False(t, ok)
	assert.Empty(t, tok)
	assert.Zero(t, s.ExpiresIn())
}

func TestStore_SetAndClear(t *testing.T) {
	s := NewStore()
	s.Set(&oauth2.Token{AccessToken: "access-token-1", TokenType: "Bearer"})
	require.True(t, s.IsAuthenticated())

	tok, ok := s.Token()
	require.True(t, ok)
	assert.Equal(t, "access-token-1", tok)

	s.Clear()
	assert.False(t, s.IsAuthenticated())
}

func TestStore_EmptyTokenClears(t *testing.T) {
	s := NewStore()
	s.Set(&oauth2.Token{AccessToken: "access-token-1"})
	s.Set(&oauth2.Token{AccessToken: ""})
	assert.False(t, s.IsAuthenticated())

	s.Set(&oauth2.Token{AccessToken: "access-token-2"})
	s.Set(nil)
	assert.False(t, s.IsAuthenticated())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	in := &oauth2.Token{AccessToken: "access-token-1"}
	s.Set(in)
	in.AccessToken = "mutated-by-caller"

	got := s.Get()
	require.NotNil(t, got)
	assert.Equal(t, "access-token-1", got.AccessToken)

	got.AccessToken = "mutated-again"
	tok, _ := s.Token()
	assert.Equal(t, "access-token-1", tok)
}

func TestStore_ExpiresIn(t *testing.T) {
	s := NewStore()
	s.Set(&oauth2.Token{AccessToken: "access-token-1", Expiry: time.Now().Add(10 * time.Minute)})
	got := s.ExpiresIn()
	assert.Greater(t, got, 9*time.Minute)
	assert.LessOrEqual(t, got, 10*time.Minute)

	s.Set(&oauth2.Token{AccessToken: "access-token-1", Expiry: time.Now().Add(-time.Minute)})
	assert.Zero(t, s.ExpiresIn())
}
