// internal/game/session_store_test.go
package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionMintsUsableCode(t *testing.T) {
	st := NewSessionStore()
	s, err := st.CreateSession(testPack())
	require.NoError(t, err)

	assert.Len(t, s.Code, codeLength)
	for _, c := range s.Code {
		assert.Contains(t, codeAlphabet, string(c))
	}
	assert.Equal(t, StageLobby, s.Stage)
	require.Len(t, s.Rounds, 2)
	assert.Equal(t, 1, st.Count())
}

func TestGetSessionIsCaseInsensitive(t *testing.T) {
	st := NewSessionStore()
	s, err := st.CreateSession(testPack())
	require.NoError(t, err)

	got, ok := st.GetSession(strings.ToLower(s.Code))
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = st.GetSession("ZZZZ")
	assert.False(t, ok)
}

func TestCodesAreUnique(t *testing.T) {
	st := NewSessionStore()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		s, err := st.CreateSession(testPack())
		require.NoError(t, err)
		assert.False(t, seen[s.Code], "code %s issued twice", s.Code)
		seen[s.Code] = true
	}
}

func TestOnEmptyRemovesSessionFromStore(t *testing.T) {
	st := NewSessionStore()
	s, err := st.CreateSession(testPack())
	require.NoError(t, err)

	// Simulate the last lobby member leaving.
	s.OnEmpty(s.Code)

	_, ok := st.GetSession(s.Code)
	assert.False(t, ok)
	assert.Equal(t, 0, st.Count())
}
