package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
	"daily-trivia-service/internal/infra/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Player{UserID: "u1", Username: "alice"}
	bob   = domain.Player{UserID: "u2", Username: "bob"}
	carol = domain.Player{UserID: "u3", Username: "carol"}
)

type fixture struct {
	service *app.TriviaService
	store   *memory.Store
	now     time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T, rules app.Rules, sets ...domain.QuestionSet) *fixture {
	t.Helper()
	if len(sets) == 0 {
		sets = []domain.QuestionSet{questionSet(day(15), true)}
	}
	f := &fixture{
		store: memory.NewStore(),
		now:   day(15).Add(9 * time.Hour),
	}
	repo := memory.NewQuestionSetRepository(memory.NewStaticQuestionSetLoader(sets...), time.Minute)
	f.service = app.NewTriviaService(repo, f.store, rules,
		app.WithClock(f.clock),
		app.WithLogger(quietLogger()),
	)
	return f
}

func TestStartSessionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())

	first, err := f.service.StartSession(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, first.Status)
	require.Zero(t, first.Score)

	again, created, err := f.service.OpenSession(ctx, alice)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, again.ID)

	_, created, err = f.service.OpenSession(ctx, bob)
	require.NoError(t, err)
	require.True(t, created)

	_, err = f.service.CompleteSession(ctx, alice, first.ID, 30)
	require.NoError(t, err)

	_, err = f.service.StartSession(ctx, alice)
	require.ErrorIs(t, err, domain.ErrAlreadyPlayed)
}

func TestStartSessionWithoutGame(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules(), questionSet(day(15), false))

	_, err := f.service.StartSession(ctx, alice)
	require.ErrorIs(t, err, domain.ErrNoGameToday)

	f.now = day(16)
	_, err = f.service.TodayGame(ctx, nil)
	require.ErrorIs(t, err, domain.ErrNoGameToday)
}

func TestConcurrentStartCreatesOneSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := f.service.StartSession(ctx, alice)
			if err == nil {
				ids[i] = session.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}
	require.NotEmpty(t, ids[0])
}

func TestSubmitAnswerRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())
	session, err := f.service.StartSession(ctx, alice)
	require.NoError(t, err)

	result, err := f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{
		SessionID: session.ID, QuestionID: "q1", Answer: " b ", ElapsedSeconds: 5,
	})
	require.NoError(t, err)
	require.True(t, result.IsCorrect)
	require.Equal(t, 10, result.PointsEarned)
	require.Equal(t, "B", result.CorrectAnswer)
	require.Equal(t, "Paris has been the capital since 987.", result.Explanation)
	require.Equal(t, 10, result.CurrentScore)

	_, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{
		SessionID: session.ID, QuestionID: "q1", Answer: "A", ElapsedSeconds: 5,
	})
	require.ErrorIs(t, err, domain.ErrAlreadyAnswered)

	stored, err := f.store.Session(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 10, stored.Score)
}

func TestConcurrentDuplicateAnswersCreditOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())
	session, err := f.service.StartSession(ctx, alice)
	require.NoError(t, err)

	const retries = 12
	errs := make([]error, retries)
	var wg sync.WaitGroup
	for i := 0; i < retries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{
				SessionID: session.ID, QuestionID: "q2", Answer: "true", ElapsedSeconds: 3,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrAlreadyAnswered)
	}
	require.Equal(t, 1, succeeded)

	stored, err := f.store.Session(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, 20, stored.Score)
}

func TestSubmitAnswerValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())
	session, err := f.service.StartSession(ctx, alice)
	require.NoError(t, err)

	_, err = f.service.SubmitAnswer(ctx, bob, domain.AnswerSubmission{SessionID: session.ID, QuestionID: "q1", Answer: "B"})
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: "missing", QuestionID: "q1", Answer: "B"})
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: "q9", Answer: "B"})
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)

	_, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: "q1", Answer: "B", ElapsedSeconds: -1})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.service.CompleteSession(ctx, alice, session.ID, 20)
	require.NoError(t, err)

	_, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: "q1", Answer: "B"})
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestCompleteSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())
	session, err := f.service.StartSession(ctx, alice)
	require.NoError(t, err)

	_, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: "q1", Answer: "B", ElapsedSeconds: 5})
	require.NoError(t, err)
	res, err := f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: "q2", Answer: "false", ElapsedSeconds: 5})
	require.NoError(t, err)
	require.False(t, res.IsCorrect)
	require.Equal(t, 10, res.CurrentScore)

	done, err := f.service.CompleteSession(ctx, alice, session.ID, 60)
	require.NoError(t, err)
	require.Equal(t, 10, done.Score)
	require.Equal(t, 50, done.FinalScore)
	require.Equal(t, 1, done.Rank)
	require.Equal(t, 100, done.PlacementPoints)
	require.Equal(t, 10, done.ParticipationPoints)
	require.Equal(t, 110, done.TotalBonusPoints)
	require.False(t, done.PerfectGame)

	stats, err := f.service.Stats(ctx, alice.UserID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalGamesPlayed)
	require.Equal(t, 110, stats.AvailablePoints)
	require.Equal(t, 110, stats.TotalPointsEarned)
	require.Equal(t, "11.00", stats.DiscountAmount)
	require.Equal(t, 1, stats.FirstPlaceFinishes)
	require.Equal(t, 1, stats.CurrentStreak)
	require.Equal(t, "2026-10-15", *stats.LastPlayedDate)

	_, err = f.service.CompleteSession(ctx, alice, session.ID, 60)
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	stats, err = f.service.Stats(ctx, alice.UserID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalGamesPlayed)
}

func TestScoreEqualsSumOfAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())
	session, err := f.service.StartSession(ctx, alice)
	require.NoError(t, err)

	for _, sub := range []domain.AnswerSubmission{
		{SessionID: session.ID, QuestionID: "q1", Answer: "b"},
		{SessionID: session.ID, QuestionID: "q2", Answer: "TRUE"},
		{SessionID: session.ID, QuestionID: "q3", Answer: "wrong"},
		{SessionID: session.ID, QuestionID: "q1", Answer: "b"},
	} {
		_, _ = f.service.SubmitAnswer(ctx, alice, sub)
	}

	stored, err := f.store.Session(ctx, session.ID)
	require.NoError(t, err)
	answers, err := f.store.Answers(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, answers, 3)

	sum := 0
	for _, a := range answers {
		sum += a.PointsEarned
	}
	require.Equal(t, sum, stored.Score)
	require.Equal(t, 30, stored.Score)
}

func TestPerfectGameAndPlacements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())

	play := func(p domain.Player, answers map[string]string, elapsed int) domain.CompletionResult {
		session, err := f.service.StartSession(ctx, p)
		require.NoError(t, err)
		for q, a := range answers {
			_, err := f.service.SubmitAnswer(ctx, p, domain.AnswerSubmission{SessionID: session.ID, QuestionID: q, Answer: a})
			require.NoError(t, err)
		}
		res, err := f.service.CompleteSession(ctx, p, session.ID, elapsed)
		require.NoError(t, err)
		return res
	}

	perfect := map[string]string{"q1": "B", "q2": "true", "q3": "Mercury"}
	first := play(alice, perfect, 90)
	require.True(t, first.PerfectGame)
	require.Equal(t, 1, first.Rank)

	second := play(bob, perfect, 60)
	require.Equal(t, 1, second.Rank)

	third := play(carol, map[string]string{"q1": "B"}, 10)
	require.Equal(t, 3, third.Rank)
	require.Equal(t, 25, third.PlacementPoints)
	require.False(t, third.PerfectGame)

	stats, err := f.service.Stats(ctx, alice.UserID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.PerfectGames)
	require.Equal(t, 1, stats.FirstPlaceFinishes)

	board, err := f.service.Leaderboard(ctx, day(15), 0)
	require.NoError(t, err)
	require.Len(t, board, 3)
	require.Equal(t, "bob", board[0].Username)
	require.Equal(t, 1, board[0].Rank)
	require.Equal(t, 60+40, board[0].FinalScore)
	require.Equal(t, "alice", board[1].Username)
	require.Equal(t, 2, board[1].Rank)
	require.Equal(t, "carol", board[2].Username)
	require.Equal(t, 3, board[2].Rank)

	top, err := f.service.Leaderboard(ctx, day(15), 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
}

func TestLeaderboardWithoutSetIsEmpty(t *testing.T) {
	f := newFixture(t, app.DefaultRules())

	board, err := f.service.Leaderboard(context.Background(), day(20), 10)
	require.NoError(t, err)
	require.NotNil(t, board)
	require.Empty(t, board)
}

func TestStreakAcrossDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules(),
		questionSet(day(1), true),
		questionSet(day(2), true),
		questionSet(day(6), true),
	)

	playOn := func(d int) domain.StatsView {
		f.now = day(d).Add(12 * time.Hour)
		session, err := f.service.StartSession(ctx, alice)
		require.NoError(t, err)
		_, err = f.service.CompleteSession(ctx, alice, session.ID, 100)
		require.NoError(t, err)
		stats, err := f.service.Stats(ctx, alice.UserID)
		require.NoError(t, err)
		return stats
	}

	require.Equal(t, 1, playOn(1).CurrentStreak)
	second := playOn(2)
	require.Equal(t, 2, second.CurrentStreak)
	require.Equal(t, 2, second.LongestStreak)
	after := playOn(6)
	require.Equal(t, 1, after.CurrentStreak)
	require.Equal(t, 2, after.LongestStreak)
	require.Equal(t, 3, after.TotalGamesPlayed)
}

func TestCustomRewardTable(t *testing.T) {
	ctx := context.Background()
	rules := app.DefaultRules()
	rules.PlacementPoints = map[int]int{1: 7}
	rules.ParticipationPoints = 1
	rules.DifficultyPoints = map[domain.Difficulty]int{domain.Easy: 1, domain.Medium: 2, domain.Hard: 3}
	f := newFixture(t, rules)

	session, err := f.service.StartSession(ctx, alice)
	require.NoError(t, err)
	res, err := f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: "q3", Answer: "mercury"})
	require.NoError(t, err)
	require.Equal(t, 3, res.PointsEarned)

	done, err := f.service.CompleteSession(ctx, alice, session.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 3+50, done.FinalScore)
	require.Equal(t, 8, done.TotalBonusPoints)
}

func TestRedeemPoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())

	_, err := f.service.Redeem(ctx, alice.UserID, 10)
	require.ErrorIs(t, err, domain.ErrInsufficientPoints)

	session, err := f.service.StartSession(ctx, alice)
	require.NoError(t, err)
	_, err = f.service.CompleteSession(ctx, alice, session.ID, 10)
	require.NoError(t, err)

	_, err = f.service.Redeem(ctx, alice.UserID, 111)
	require.ErrorIs(t, err, domain.ErrInsufficientPoints)

	_, err = f.service.Redeem(ctx, alice.UserID, -5)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	redemption, err := f.service.Redeem(ctx, alice.UserID, 60)
	require.NoError(t, err)
	require.Equal(t, 50, redemption.AvailablePoints)
	require.Equal(t, "6.00", redemption.DiscountAmount)

	stats, err := f.service.Stats(ctx, alice.UserID)
	require.NoError(t, err)
	require.Equal(t, 50, stats.AvailablePoints)
	require.Equal(t, 110, stats.TotalPointsEarned)
}

func TestTodayHidesAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())

	view, err := f.service.TodayGame(ctx, &alice)
	require.NoError(t, err)
	require.False(t, view.HasPlayedToday)
	require.Equal(t, 300, view.TimeLimitSeconds)
	require.Len(t, view.QuestionSet.Questions, 3)
	require.Equal(t, 10, view.QuestionSet.Questions[0].MaxPoints)
	require.Equal(t, 20, view.QuestionSet.Questions[1].MaxPoints)
	require.Equal(t, 30, view.QuestionSet.Questions[2].MaxPoints)
	require.Nil(t, view.QuestionSet.Questions[1].Options)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "correctAnswer")
	require.NotContains(t, string(raw), "explanation")
	require.NotContains(t, string(raw), "Paris has been")

	_, err = f.service.StartSession(ctx, alice)
	require.NoError(t, err)
	view, err = f.service.TodayGame(ctx, &alice)
	require.NoError(t, err)
	require.True(t, view.HasPlayedToday)
}

func TestSessionDetailRevealsOnlyAnswered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.DefaultRules())
	session, err := f.service.StartSession(ctx, alice)
	require.NoError(t, err)
	_, err = f.service.SubmitAnswer(ctx, alice, domain.AnswerSubmission{SessionID: session.ID, QuestionID: "q1", Answer: "A"})
	require.NoError(t, err)

	detail, err := f.service.SessionDetail(ctx, alice, session.ID)
	require.NoError(t, err)
	require.Len(t, detail.Answers, 1)
	require.Equal(t, "B", detail.Answers[0].CorrectAnswer)
	require.False(t, detail.Answers[0].IsCorrect)

	_, err = f.service.SessionDetail(ctx, bob, session.ID)
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestCompletionEventsAndCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	cache := &recordingCache{}
	store := memory.NewStore()
	repo := memory.NewQuestionSetRepository(memory.NewStaticQuestionSetLoader(questionSet(day(15), true)), time.Minute)
	now := day(15).Add(time.Hour)
	service := app.NewTriviaService(repo, store, app.DefaultRules(),
		app.WithClock(func() time.Time { return now }),
		app.WithEventPublisher(publisher),
		app.WithLeaderboardCache(cache),
		app.WithLogger(quietLogger()),
	)

	_, err := service.Leaderboard(ctx, day(15), 10)
	require.NoError(t, err)
	require.Equal(t, 1, cache.stores)

	session, err := service.StartSession(ctx, alice)
	require.NoError(t, err)
	_, err = service.CompleteSession(ctx, alice, session.ID, 12)
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	require.Equal(t, session.ID, publisher.events[0].SessionID)
	require.Equal(t, "2026-10-15", publisher.events[0].Date)
	require.Equal(t, 110, publisher.events[0].PointsAwarded)
	require.Equal(t, 1, cache.invalidations)
}

func TestLeaderboardIgnoresCompletionDuringRead(t *testing.T) {
	ctx := context.Background()
	cache := &recordingCache{}
	store := &interleavingStore{Store: memory.NewStore()}
	repo := memory.NewQuestionSetRepository(memory.NewStaticQuestionSetLoader(questionSet(day(15), true)), time.Minute)
	now := day(15).Add(time.Hour)
	service := app.NewTriviaService(repo, store, app.DefaultRules(),
		app.WithClock(func() time.Time { return now }),
		app.WithLeaderboardCache(cache),
		app.WithLogger(quietLogger()),
	)

	session, err := service.StartSession(ctx, alice)
	require.NoError(t, err)
	store.afterRead = func() {
		_, err := service.CompleteSession(ctx, alice, session.ID, 12)
		require.NoError(t, err)
	}

	first, err := service.Leaderboard(ctx, day(15), 10)
	require.NoError(t, err)
	require.Empty(t, first)
	require.Equal(t, 0, cache.stores)

	second, err := service.Leaderboard(ctx, day(15), 10)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, "alice", second[0].Username)
	require.Equal(t, 1, cache.stores)
}

type recordingPublisher struct {
	events []domain.CompletionEvent
}

func (p *recordingPublisher) PublishCompletion(_ context.Context, event domain.CompletionEvent) error {
	p.events = append(p.events, event)
	return nil
}

type recordingCache struct {
	mu            sync.Mutex
	boards        map[string][]domain.LeaderboardEntry
	versions      map[string]int64
	stores        int
	invalidations int
}

func (c *recordingCache) Leaderboard(_ context.Context, date time.Time) ([]domain.LeaderboardEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.boards[domain.FormatDate(date)]
	return entries, ok, nil
}

func (c *recordingCache) Version(_ context.Context, date time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[domain.FormatDate(date)], nil
}

func (c *recordingCache) StoreLeaderboard(_ context.Context, date time.Time, version int64, entries []domain.LeaderboardEntry) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := domain.FormatDate(date)
	if c.versions[key] != version {
		return false, nil
	}
	if c.boards == nil {
		c.boards = make(map[string][]domain.LeaderboardEntry)
	}
	c.boards[key] = entries
	c.stores++
	return true, nil
}

func (c *recordingCache) Invalidate(_ context.Context, date time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := domain.FormatDate(date)
	if c.versions == nil {
		c.versions = make(map[string]int64)
	}
	c.versions[key]++
	delete(c.boards, key)
	c.invalidations++
	return nil
}

// interleavingStore runs afterRead once, right after CompletedSessions has
// loaded its rows and before the caller sees them.
type interleavingStore struct {
	*memory.Store
	afterRead func()
}

func (s *interleavingStore) CompletedSessions(ctx context.Context, setID string, limit int) ([]domain.GameSession, error) {
	sessions, err := s.Store.CompletedSessions(ctx, setID, limit)
	if hook := s.afterRead; hook != nil {
		s.afterRead = nil
		hook()
	}
	return sessions, err
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func day(d int) time.Time {
	return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC)
}

func questionSet(date time.Time, active bool) domain.QuestionSet {
	id := fmt.Sprintf("set-%s", domain.FormatDate(date))
	return domain.QuestionSet{
		ID:          id,
		Date:        date,
		Theme:       "General Knowledge",
		Description: "A little of everything",
		Active:      active,
		Questions: []domain.Question{
			{
				ID:            "q1",
				SetID:         id,
				Order:         1,
				Text:          "What is the capital of France?",
				Type:          domain.MultipleChoice,
				Difficulty:    domain.Easy,
				Options:       map[string]string{"A": "Berlin", "B": "Paris", "C": "Madrid", "D": "Rome"},
				CorrectAnswer: "B",
				Explanation:   "Paris has been the capital since 987.",
			},
			{
				ID:            "q2",
				SetID:         id,
				Order:         2,
				Text:          "The Pacific is the largest ocean on Earth.",
				Type:          domain.TrueFalse,
				Difficulty:    domain.Medium,
				CorrectAnswer: "True",
				Explanation:   "It covers about a third of the planet.",
			},
			{
				ID:            "q3",
				SetID:         id,
				Order:         3,
				Text:          "The planet closest to the Sun is ____.",
				Type:          domain.FillBlank,
				Difficulty:    domain.Hard,
				CorrectAnswer: "Mercury",
				Explanation:   "Mercury orbits at about 58 million km.",
			},
		},
	}
}
