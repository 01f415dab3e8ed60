package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
)

// Store is an in-memory implementation of app.Store. Transactions are
// serialized by a single mutex and roll back by restoring a snapshot.
type Store struct {
	mu   sync.Mutex
	data state
}

type playerKey struct {
	userID string
	setID  string
}

type answerKey struct {
	sessionID  string
	questionID string
}

type answerRecord struct {
	answer domain.Answer
	seq    int
}

type state struct {
	sessions map[string]domain.GameSession
	byPlayer map[playerKey]string
	answers  map[answerKey]answerRecord
	stats    map[string]domain.UserStats
	seq      int
}

func NewStore() *Store {
	return &Store{data: state{
		sessions: make(map[string]domain.GameSession),
		byPlayer: make(map[playerKey]string),
		answers:  make(map[answerKey]answerRecord),
		stats:    make(map[string]domain.UserStats),
	}}
}

func (st state) clone() state {
	c := state{
		sessions: make(map[string]domain.GameSession, len(st.sessions)),
		byPlayer: make(map[playerKey]string, len(st.byPlayer)),
		answers:  make(map[answerKey]answerRecord, len(st.answers)),
		stats:    make(map[string]domain.UserStats, len(st.stats)),
		seq:      st.seq,
	}
	for k, v := range st.sessions {
		c.sessions[k] = v
	}
	for k, v := range st.byPlayer {
		c.byPlayer[k] = v
	}
	for k, v := range st.answers {
		c.answers[k] = v
	}
	for k, v := range st.stats {
		c.stats[k] = v
	}
	return c
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, &tx{st: &s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) SessionFor(_ context.Context, userID, setID string) (domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.data.byPlayer[playerKey{userID: userID, setID: setID}]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return s.data.sessions[id], nil
}

func (s *Store) Session(_ context.Context, sessionID string) (domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.data.sessions[sessionID]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) Answers(_ context.Context, sessionID string) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]answerRecord, 0)
	for k, rec := range s.data.answers {
		if k.sessionID == sessionID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	answers := make([]domain.Answer, 0, len(records))
	for _, rec := range records {
		answers = append(answers, rec.answer)
	}
	return answers, nil
}

func (s *Store) CompletedSessions(_ context.Context, setID string, limit int) ([]domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]domain.GameSession, 0)
	for _, session := range s.data.sessions {
		if session.SetID == setID && session.Status == domain.StatusCompleted {
			sessions = append(sessions, session)
		}
	}
	app.SortForLeaderboard(sessions)
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *Store) Stats(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.data.stats[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrStatsNotFound
	}
	return stats, nil
}

// tx operates on the live state while the store mutex is held.
type tx struct {
	st *state
}

func (t *tx) CreateSession(_ context.Context, session domain.GameSession) (domain.GameSession, error) {
	key := playerKey{userID: session.UserID, setID: session.SetID}
	if id, ok := t.st.byPlayer[key]; ok {
		return t.st.sessions[id], nil
	}
	t.st.sessions[session.ID] = session
	t.st.byPlayer[key] = session.ID
	return session, nil
}

func (t *tx) LockSession(_ context.Context, sessionID string) (domain.GameSession, error) {
	session, ok := t.st.sessions[sessionID]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (t *tx) InsertAnswer(_ context.Context, a domain.Answer) (bool, error) {
	key := answerKey{sessionID: a.SessionID, questionID: a.QuestionID}
	if _, ok := t.st.answers[key]; ok {
		return false, nil
	}
	t.st.seq++
	t.st.answers[key] = answerRecord{answer: a, seq: t.st.seq}
	return true, nil
}

func (t *tx) AddScore(_ context.Context, sessionID string, points int) (int, error) {
	session, ok := t.st.sessions[sessionID]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	session.Score += points
	t.st.sessions[sessionID] = session
	return session.Score, nil
}

func (t *tx) CompleteSession(_ context.Context, sessionID string, elapsedSeconds int, at time.Time) (domain.GameSession, error) {
	session, ok := t.st.sessions[sessionID]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	if !session.Status.CanTransition(domain.StatusCompleted) {
		return domain.GameSession{}, domain.ErrInvalidSession
	}
	completed := at
	session.Status = domain.StatusCompleted
	session.ElapsedSeconds = elapsedSeconds
	session.CompletedAt = &completed
	t.st.sessions[sessionID] = session
	return session, nil
}

func (t *tx) CountAhead(_ context.Context, setID string, score, elapsedSeconds int) (int, error) {
	count := 0
	for _, session := range t.st.sessions {
		if session.SetID == setID && app.Ahead(session, score, elapsedSeconds) {
			count++
		}
	}
	return count, nil
}

func (t *tx) CountCorrect(_ context.Context, sessionID string) (int, error) {
	count := 0
	for k, rec := range t.st.answers {
		if k.sessionID == sessionID && rec.answer.Correct {
			count++
		}
	}
	return count, nil
}

func (t *tx) EnsureStats(_ context.Context, userID string, at time.Time) error {
	if _, ok := t.st.stats[userID]; !ok {
		t.st.stats[userID] = domain.UserStats{UserID: userID, UpdatedAt: at}
	}
	return nil
}

func (t *tx) LockStats(_ context.Context, userID string) (domain.UserStats, error) {
	stats, ok := t.st.stats[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrStatsNotFound
	}
	return stats, nil
}

func (t *tx) SaveStats(_ context.Context, stats domain.UserStats) error {
	if _, ok := t.st.stats[stats.UserID]; !ok {
		return domain.ErrStatsNotFound
	}
	t.st.stats[stats.UserID] = stats
	return nil
}
