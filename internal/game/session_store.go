// internal/game/session_store.go
package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/quizroom/internal/catalog"
)

// codeAlphabet excludes characters that read ambiguously when shouted
// across a living room (I/1, O/0, L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 4

// SessionStore maps join codes to live sessions. It is the process-wide
// directory the websocket handlers resolve codes against.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*QuizSession
	rng      *rand.Rand
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*QuizSession),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateSession mints a fresh session for the pack under a join code
// unique among live sessions. The session's OnEmpty hook is wired to
// remove it from the store.
func (st *SessionStore) CreateSession(pack *catalog.QuizPack) (*QuizSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	code, err := st.uniqueCode()
	if err != nil {
		return nil, err
	}
	s := NewQuizSession(code, pack)
	s.OnEmpty = func(code string) {
		st.DeleteSession(code)
	}
	st.sessions[code] = s
	return s, nil
}

// GetSession resolves a join code, case-insensitively.
func (st *SessionStore) GetSession(code string) (*QuizSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[strings.ToUpper(code)]
	return s, ok
}

// DeleteSession removes a session from the directory. The session object
// itself is left to drain; anyone still holding it sees a session no new
// connection can reach.
func (st *SessionStore) DeleteSession(code string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, strings.ToUpper(code))
}

// Count reports the number of live sessions.
func (st *SessionStore) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// uniqueCode draws codes until one is free. Assumes st.mu is held.
func (st *SessionStore) uniqueCode() (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[st.rng.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := st.sessions[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique session code")
}
