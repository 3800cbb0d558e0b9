// internal/game/session_test.go
package game

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/quizroom/internal/catalog"
	"github.com/jason-s-yu/quizroom/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []Event
	playerEvents map[uuid.UUID][]Event
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerEvents: make(map[uuid.UUID][]Event),
	}
}

func (mb *mockBroadcaster) broadcastFn(ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) unicastFn(playerID uuid.UUID, ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = nil
	mb.playerEvents = make(map[uuid.UUID][]Event)
}

func (mb *mockBroadcaster) eventsOfType(t EventType) []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []Event
	for _, ev := range mb.allEvents {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) lastOfType(t EventType) *Event {
	evs := mb.eventsOfType(t)
	if len(evs) == 0 {
		return nil
	}
	return &evs[len(evs)-1]
}

func (mb *mockBroadcaster) lastPlayerEvent(playerID uuid.UUID) *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	evs := mb.playerEvents[playerID]
	if len(evs) == 0 {
		return nil
	}
	return &evs[len(evs)-1]
}

// snapshot returns a copy of the broadcast log for order assertions.
func (mb *mockBroadcaster) snapshot() []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := make([]Event, len(mb.allEvents))
	copy(out, mb.allEvents)
	return out
}

// testPack has two rounds (two questions, then one) with generous time
// limits so the collection window only closes when the test wants it to.
func testPack() *catalog.QuizPack {
	pack := &catalog.QuizPack{
		Title: "Test Pack",
		Rounds: []catalog.Round{
			{
				Name: "Round One",
				Questions: []catalog.Question{
					{Text: "Capital of France?", Kind: catalog.KindTextInput, CorrectAnswer: "Paris", PointValue: 100, TimeLimitMs: 60000},
					{Text: "2 + 2?", Kind: catalog.KindTextInput, CorrectAnswer: "4", PointValue: 100, TimeLimitMs: 60000},
				},
			},
			{
				Name: "Round Two",
				Questions: []catalog.Question{
					{Text: "Sky color?", Kind: catalog.KindTextInput, CorrectAnswer: "Blue", PointValue: 100, TimeLimitMs: 60000},
				},
			},
		},
	}
	pack.Normalize()
	return pack
}

// testTiming pauses indefinitely at review and round end so tests can
// inspect state; only the pre-question delay runs fast.
func testTiming() Timing {
	return Timing{
		AnswerBuffer:    20 * time.Millisecond,
		RoundStartDelay: 10 * time.Millisecond,
		ReviewDelay:     time.Hour,
		RoundEndDelay:   time.Hour,
		EmptyGrace:      40 * time.Millisecond,
	}
}

func setupSession(t *testing.T, numPlayers int, pack *catalog.QuizPack) (*QuizSession, []uuid.UUID, *mockBroadcaster) {
	t.Helper()
	if pack == nil {
		pack = testPack()
	}
	s := NewQuizSession("TEST", pack)
	s.Timing = testTiming()
	mb := newMockBroadcaster()
	s.BroadcastFn = mb.broadcastFn
	s.UnicastFn = mb.unicastFn

	ids := make([]uuid.UUID, numPlayers)
	for i := 0; i < numPlayers; i++ {
		ids[i] = uuid.New()
		ident := models.Identity{ID: ids[i], Name: "Player" + string(rune('A'+i))}
		require.NoError(t, s.Join(ident, nil))
	}
	return s, ids, mb
}

func waitForStage(t *testing.T, s *QuizSession, want Stage) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.Mu.Lock()
		got := s.Stage
		s.Mu.Unlock()
		if got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Mu.Lock()
	got := s.Stage
	s.Mu.Unlock()
	t.Fatalf("timed out waiting for stage %s, stuck at %s", want, got)
}

// startedSession readies everyone, starts the game, and waits for the
// first collection window to open.
func startedSession(t *testing.T, numPlayers int) (*QuizSession, []uuid.UUID, *mockBroadcaster) {
	t.Helper()
	s, ids, mb := setupSession(t, numPlayers, nil)
	for _, id := range ids {
		s.SetReady(id, true)
	}
	s.StartGame(ids[0])
	waitForStage(t, s, StageAnswerCollection)
	mb.clear()
	return s, ids, mb
}

func stageOf(s *QuizSession) Stage {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Stage
}

func TestJoinAssignsHostAndBroadcasts(t *testing.T) {
	s, ids, mb := setupSession(t, 2, nil)

	s.Mu.Lock()
	require.Len(t, s.Players, 2)
	assert.True(t, s.Players[0].IsHost, "first joiner should be host")
	assert.False(t, s.Players[1].IsHost)
	s.Mu.Unlock()

	ev := mb.lastOfType(EventLobbyUpdate)
	require.NotNil(t, ev)
	require.NotNil(t, ev.Lobby)
	assert.Equal(t, "TEST", ev.Lobby.Code)
	require.Len(t, ev.Lobby.Players, 2)
	assert.Equal(t, ids[0], ev.Lobby.Players[0].ID)
	assert.Equal(t, StageLobby, ev.Lobby.Stage)
}

func TestJoinRejectedMidGame(t *testing.T) {
	s, _, _ := startedSession(t, 2)

	err := s.Join(models.Identity{ID: uuid.New(), Name: "Latecomer"}, nil)
	require.Error(t, err)

	s.Mu.Lock()
	assert.Len(t, s.Players, 2, "unknown identity must not enter mid-game")
	s.Mu.Unlock()
}

func TestSetReadyBroadcastsRoster(t *testing.T) {
	s, ids, mb := setupSession(t, 2, nil)
	mb.clear()

	s.SetReady(ids[1], true)

	ev := mb.lastOfType(EventLobbyUpdate)
	require.NotNil(t, ev)
	assert.False(t, ev.Lobby.Players[0].IsReady)
	assert.True(t, ev.Lobby.Players[1].IsReady)
}

func TestStartGameRequiresHost(t *testing.T) {
	s, ids, mb := setupSession(t, 2, nil)
	for _, id := range ids {
		s.SetReady(id, true)
	}
	mb.clear()

	s.StartGame(ids[1])

	assert.Equal(t, StageLobby, stageOf(s), "non-host cannot start the game")
	ev := mb.lastPlayerEvent(ids[1])
	require.NotNil(t, ev)
	assert.Equal(t, EventLobbyError, ev.Type)
	assert.Empty(t, mb.eventsOfType(EventStageUpdate))
}

func TestStartGameRequiresTwoReady(t *testing.T) {
	s, ids, mb := setupSession(t, 2, nil)
	s.SetReady(ids[0], true)
	mb.clear()

	s.StartGame(ids[0])

	assert.Equal(t, StageLobby, stageOf(s))
	ev := mb.lastOfType(EventLobbyError)
	require.NotNil(t, ev, "refusal should be announced to the whole session")
}

func TestStartGameResetsScoresAndAsksFirstQuestion(t *testing.T) {
	s, ids, mb := setupSession(t, 2, nil)
	for _, id := range ids {
		s.SetReady(id, true)
	}
	s.Mu.Lock()
	s.Players[0].Score = 999 // leftover from a previous game
	s.Mu.Unlock()
	mb.clear()

	s.StartGame(ids[0])
	waitForStage(t, s, StageAnswerCollection)

	s.Mu.Lock()
	assert.Equal(t, 0, s.Players[0].Score, "scores reset on start")
	assert.False(t, s.Players[0].IsReady, "ready flags clear on start")
	s.Mu.Unlock()

	q := mb.lastOfType(EventNewQuestion)
	require.NotNil(t, q)
	require.NotNil(t, q.Question)
	assert.Equal(t, "Capital of France?", q.Question.Text)
	assert.Equal(t, 1, q.Question.CurrentRound)
	assert.Equal(t, 2, q.Question.TotalRounds)
	assert.Equal(t, 1, q.Question.QuestionNumber)
	assert.Equal(t, 2, q.Question.TotalQuestionsInRound)

	// Clients must see the question before the stage change that opens
	// the window.
	var qIdx, collectIdx = -1, -1
	for i, ev := range mb.snapshot() {
		if ev.Type == EventNewQuestion && qIdx == -1 {
			qIdx = i
		}
		if ev.Type == EventStageUpdate && ev.Stage != nil && ev.Stage.Stage == StageAnswerCollection {
			collectIdx = i
		}
	}
	require.NotEqual(t, -1, qIdx)
	require.NotEqual(t, -1, collectIdx)
	assert.Less(t, qIdx, collectIdx, "new_question must precede the ANSWER_COLLECTION stage_update")
}

func TestDisconnectInLobbyRemovesPlayer(t *testing.T) {
	s, ids, mb := setupSession(t, 2, nil)

	var emptied string
	s.OnEmpty = func(code string) { emptied = code }
	mb.clear()

	s.HandleDisconnect(ids[1])

	s.Mu.Lock()
	require.Len(t, s.Players, 1)
	s.Mu.Unlock()
	ev := mb.lastOfType(EventLobbyUpdate)
	require.NotNil(t, ev)
	assert.Len(t, ev.Lobby.Players, 1)
	assert.Empty(t, emptied)

	s.HandleDisconnect(ids[0])
	assert.Equal(t, "TEST", emptied, "empty lobby should discard the session")
}

func TestMidGameDisconnectKeepsSeat(t *testing.T) {
	s, ids, mb := startedSession(t, 2)

	s.Mu.Lock()
	s.Players[1].Score = 150
	s.Mu.Unlock()

	s.HandleDisconnect(ids[1])

	s.Mu.Lock()
	require.Len(t, s.Players, 2, "mid-game disconnect keeps the seat")
	assert.False(t, s.Players[1].Connected)
	assert.Equal(t, 150, s.Players[1].Score)
	s.Mu.Unlock()

	// Rejoining with the same identity reattaches, ignoring the stage.
	require.NoError(t, s.Join(models.Identity{ID: ids[1], Name: "PlayerB"}, nil))

	s.Mu.Lock()
	assert.True(t, s.Players[1].Connected)
	assert.Equal(t, 150, s.Players[1].Score, "score survives a reconnect")
	s.Mu.Unlock()

	ev := mb.lastOfType(EventLobbyUpdate)
	require.NotNil(t, ev)
	assert.True(t, ev.Lobby.Players[1].IsConnected)

	// Mid-collection the reconnecting player is resynced with the
	// in-flight question.
	pe := mb.lastPlayerEvent(ids[1])
	require.NotNil(t, pe)
	assert.Equal(t, EventNewQuestion, pe.Type)
	require.NotNil(t, pe.Question)
	assert.Equal(t, "Capital of France?", pe.Question.Text)
}

func TestAbandonedSessionDiscardedAfterGrace(t *testing.T) {
	s, ids, _ := startedSession(t, 2)

	emptied := make(chan string, 1)
	s.Mu.Lock()
	s.OnEmpty = func(code string) { emptied <- code }
	s.Mu.Unlock()

	s.HandleDisconnect(ids[0])
	s.HandleDisconnect(ids[1])

	select {
	case code := <-emptied:
		assert.Equal(t, "TEST", code)
	case <-time.After(time.Second):
		t.Fatal("grace period never fired")
	}
}

func TestReconnectCancelsGraceTimer(t *testing.T) {
	s, ids, _ := startedSession(t, 2)

	emptied := make(chan string, 1)
	s.Mu.Lock()
	s.OnEmpty = func(code string) { emptied <- code }
	s.Mu.Unlock()

	s.HandleDisconnect(ids[0])
	s.HandleDisconnect(ids[1])
	require.NoError(t, s.Join(models.Identity{ID: ids[0], Name: "PlayerA"}, nil))

	select {
	case <-emptied:
		t.Fatal("session discarded despite a reconnect inside the grace period")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestStaleTimerDoesNotFire(t *testing.T) {
	s, _, _ := setupSession(t, 1, nil)

	fired := false
	s.Mu.Lock()
	s.schedule(10*time.Millisecond, func() { fired = true })
	s.cancelScheduled()
	s.Mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	s.Mu.Lock()
	assert.False(t, fired, "cancelled timer callback must be a no-op")
	s.Mu.Unlock()
}

func TestSupersededTimerDoesNotFire(t *testing.T) {
	s, _, _ := setupSession(t, 1, nil)

	var winner string
	s.Mu.Lock()
	s.schedule(10*time.Millisecond, func() { winner = "first" })
	s.schedule(30*time.Millisecond, func() { winner = "second" })
	s.Mu.Unlock()

	time.Sleep(80 * time.Millisecond)

	s.Mu.Lock()
	assert.Equal(t, "second", winner, "only the newest scheduled task may run")
	s.Mu.Unlock()
}

// TestFullGameFlow drives a two-player game front to back on fast timers
// and checks the terminal state and the stage trail.
func TestFullGameFlow(t *testing.T) {
	s, ids, mb := setupSession(t, 2, nil)
	s.Timing.ReviewDelay = 20 * time.Millisecond
	s.Timing.RoundEndDelay = 20 * time.Millisecond
	for _, id := range ids {
		s.SetReady(id, true)
	}
	s.StartGame(ids[0])

	answers := []string{"Paris", "4", "Blue"}
	for _, want := range answers {
		waitForStage(t, s, StageAnswerCollection)
		s.SubmitAnswer(ids[0], want)
		s.SubmitAnswer(ids[1], "wrong")
		waitForStage(t, s, StageScoringReview)
	}

	waitForStage(t, s, StageGameOver)

	var stages []Stage
	for _, ev := range mb.snapshot() {
		if ev.Type == EventStageUpdate {
			stages = append(stages, ev.Stage.Stage)
		}
	}
	starts := 0
	for _, st := range stages {
		if st == StageRoundStart {
			starts++
		}
	}
	assert.Equal(t, 2, starts, "one ROUND_START per round, none after the last")
	assert.Contains(t, stages, StageRoundEnd)
	assert.Equal(t, StageGameOver, stages[len(stages)-1])

	results := mb.eventsOfType(EventQuestionResults)
	require.Len(t, results, 3, "every question graded exactly once")

	s.Mu.Lock()
	assert.Greater(t, s.Players[0].Score, s.Players[1].Score)
	assert.Equal(t, 0, s.Players[1].Score)
	s.Mu.Unlock()
}
