package app

import (
	"context"
	"errors"
	"time"

	"daily-trivia-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TriviaService contains the daily trivia use cases.
type TriviaService struct {
	sets   QuestionSetRepository
	store  Store
	board  LeaderboardCache
	events EventPublisher
	rules  Rules
	now    func() time.Time
	newID  func() string
	log    logrus.FieldLogger
}

// Option customizes a TriviaService.
type Option func(*TriviaService)

// WithClock replaces time.Now; used by tests for deterministic dates.
func WithClock(now func() time.Time) Option {
	return func(s *TriviaService) { s.now = now }
}

// WithLeaderboardCache enables leaderboard caching.
func WithLeaderboardCache(cache LeaderboardCache) Option {
	return func(s *TriviaService) { s.board = cache }
}

// WithEventPublisher publishes completion events after commit.
func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *TriviaService) { s.events = publisher }
}

// WithLogger sets the service logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *TriviaService) { s.log = log }
}

func NewTriviaService(sets QuestionSetRepository, store Store, rules Rules, opts ...Option) *TriviaService {
	s := &TriviaService{
		sets:  sets,
		store: store,
		rules: rules,
		now:   time.Now,
		newID: uuid.NewString,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules exposes the configured game rules.
func (s *TriviaService) Rules() Rules {
	return s.rules
}

// Today returns the current calendar date in the game's time zone.
func (s *TriviaService) Today() time.Time {
	return domain.DateOf(s.now(), s.rules.location())
}

func (s *TriviaService) questionSet(ctx context.Context, date time.Time) (domain.QuestionSet, error) {
	set, err := s.sets.QuestionSet(ctx, date)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return s.rules.withPoints(set), nil
}

// ActiveSetForDate returns the active set for date or domain.ErrNoGameToday.
func (s *TriviaService) ActiveSetForDate(ctx context.Context, date time.Time) (domain.QuestionSet, error) {
	set, err := s.questionSet(ctx, date)
	if errors.Is(err, domain.ErrQuestionSetNotFound) {
		return domain.QuestionSet{}, domain.ErrNoGameToday
	}
	if err != nil {
		return domain.QuestionSet{}, err
	}
	if !set.Active {
		return domain.QuestionSet{}, domain.ErrNoGameToday
	}
	return set, nil
}

// TodayGame returns today's questions without answers. player may be nil for
// anonymous callers, who are always reported as not having played.
func (s *TriviaService) TodayGame(ctx context.Context, player *domain.Player) (domain.TodayView, error) {
	set, err := s.ActiveSetForDate(ctx, s.Today())
	if err != nil {
		return domain.TodayView{}, err
	}

	view := domain.TodayView{
		QuestionSet:      set.Public(),
		TimeLimitSeconds: s.rules.TimeLimitSeconds,
	}
	if player == nil {
		return view, nil
	}

	_, err = s.store.SessionFor(ctx, player.UserID, set.ID)
	switch {
	case err == nil:
		view.HasPlayedToday = true
	case errors.Is(err, domain.ErrSessionNotFound):
	default:
		return domain.TodayView{}, err
	}
	return view, nil
}

// StartSession returns the player's in-progress session for today or creates
// one. A finished session yields domain.ErrAlreadyPlayed.
func (s *TriviaService) StartSession(ctx context.Context, player domain.Player) (domain.GameSession, error) {
	session, _, err := s.OpenSession(ctx, player)
	return session, err
}

// OpenSession is StartSession that also reports whether this call created
// the session.
func (s *TriviaService) OpenSession(ctx context.Context, player domain.Player) (domain.GameSession, bool, error) {
	if player.UserID == "" {
		return domain.GameSession{}, false, domain.ErrInvalidInput
	}
	set, err := s.ActiveSetForDate(ctx, s.Today())
	if err != nil {
		return domain.GameSession{}, false, err
	}

	now := s.now()
	candidate := domain.GameSession{
		ID:        s.newID(),
		UserID:    player.UserID,
		Username:  player.Username,
		SetID:     set.ID,
		Date:      set.Date,
		Status:    domain.StatusInProgress,
		StartedAt: now,
	}

	var session domain.GameSession
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		stored, err := tx.CreateSession(ctx, candidate)
		if err != nil {
			return err
		}
		if stored.Status != domain.StatusInProgress {
			return domain.ErrAlreadyPlayed
		}
		if err := tx.EnsureStats(ctx, player.UserID, now); err != nil {
			return err
		}
		session = stored
		return nil
	})
	if err != nil {
		return domain.GameSession{}, false, err
	}

	created := session.ID == candidate.ID
	s.log.WithFields(logrus.Fields{
		"session": session.ID,
		"user":    session.UserID,
		"resumed": !created,
	}).Debug("session started")
	return session, created, nil
}

// lockPlayable locks the session and checks it can still be played by player.
func lockPlayable(ctx context.Context, tx Tx, player domain.Player, sessionID string) (domain.GameSession, error) {
	session, err := tx.LockSession(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.GameSession{}, domain.ErrInvalidSession
	}
	if err != nil {
		return domain.GameSession{}, err
	}
	if !session.OwnedBy(player.UserID) || session.Status != domain.StatusInProgress {
		return domain.GameSession{}, domain.ErrInvalidSession
	}
	return session, nil
}

// sessionSet loads the question set a session was started against.
func (s *TriviaService) sessionSet(ctx context.Context, session domain.GameSession) (domain.QuestionSet, error) {
	set, err := s.questionSet(ctx, session.Date)
	if errors.Is(err, domain.ErrQuestionSetNotFound) {
		return domain.QuestionSet{}, domain.ErrInvalidSession
	}
	if err != nil {
		return domain.QuestionSet{}, err
	}
	if set.ID != session.SetID {
		return domain.QuestionSet{}, domain.ErrInvalidSession
	}
	return set, nil
}

// SubmitAnswer grades and records one answer. A second answer to the same
// question is rejected with domain.ErrAlreadyAnswered and changes nothing.
func (s *TriviaService) SubmitAnswer(ctx context.Context, player domain.Player, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	if sub.ElapsedSeconds < 0 {
		return domain.AnswerResult{}, domain.ErrInvalidInput
	}

	var result domain.AnswerResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		session, err := lockPlayable(ctx, tx, player, sub.SessionID)
		if err != nil {
			return err
		}
		set, err := s.sessionSet(ctx, session)
		if err != nil {
			return err
		}
		question, ok := set.Question(sub.QuestionID)
		if !ok {
			return domain.ErrQuestionNotFound
		}

		correct, points := GradeAnswer(question, sub.Answer)
		inserted, err := tx.InsertAnswer(ctx, domain.Answer{
			SessionID:      session.ID,
			QuestionID:     question.ID,
			Submitted:      sub.Answer,
			Correct:        correct,
			PointsEarned:   points,
			ElapsedSeconds: sub.ElapsedSeconds,
			AnsweredAt:     s.now(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrAlreadyAnswered
		}

		score, err := tx.AddScore(ctx, session.ID, points)
		if err != nil {
			return err
		}
		result = domain.AnswerResult{
			QuestionID:    question.ID,
			IsCorrect:     correct,
			PointsEarned:  points,
			CorrectAnswer: question.CorrectAnswer,
			Explanation:   question.Explanation,
			CurrentScore:  score,
		}
		return nil
	})
	if err != nil {
		return domain.AnswerResult{}, err
	}
	return result, nil
}

// CompleteSession finishes the session, ranks it and credits the rewards in
// one transaction.
func (s *TriviaService) CompleteSession(ctx context.Context, player domain.Player, sessionID string, totalElapsedSeconds int) (domain.CompletionResult, error) {
	if totalElapsedSeconds < 0 {
		return domain.CompletionResult{}, domain.ErrInvalidInput
	}

	now := s.now()
	today := s.Today()
	var (
		result  domain.CompletionResult
		session domain.GameSession
		award   Award
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := lockPlayable(ctx, tx, player, sessionID)
		if err != nil {
			return err
		}
		set, err := s.sessionSet(ctx, locked)
		if err != nil {
			return err
		}

		session, err = tx.CompleteSession(ctx, locked.ID, totalElapsedSeconds, now)
		if err != nil {
			return err
		}
		ahead, err := tx.CountAhead(ctx, session.SetID, session.Score, session.ElapsedSeconds)
		if err != nil {
			return err
		}
		correct, err := tx.CountCorrect(ctx, session.ID)
		if err != nil {
			return err
		}
		perfect := len(set.Questions) > 0 && correct == len(set.Questions)
		award = s.rules.AwardFor(ahead+1, perfect)

		if err := tx.EnsureStats(ctx, player.UserID, now); err != nil {
			return err
		}
		stats, err := tx.LockStats(ctx, player.UserID)
		if err != nil {
			return err
		}
		if err := tx.SaveStats(ctx, ApplyCompletion(stats, today, award, now)); err != nil {
			return err
		}

		result = domain.CompletionResult{
			SessionID:           session.ID,
			Score:               session.Score,
			FinalScore:          s.rules.FinalScore(session.Score, session.ElapsedSeconds),
			Rank:                award.Rank,
			PlacementPoints:     award.Placement,
			ParticipationPoints: award.Participation,
			TotalBonusPoints:    award.Total(),
			PerfectGame:         perfect,
		}
		return nil
	})
	if err != nil {
		return domain.CompletionResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"session": session.ID,
		"user":    session.UserID,
		"rank":    result.Rank,
		"score":   result.FinalScore,
	}).Info("session completed")

	s.afterCompletion(ctx, session, result)
	return result, nil
}

// afterCompletion runs the side effects that must not roll back the commit.
func (s *TriviaService) afterCompletion(ctx context.Context, session domain.GameSession, result domain.CompletionResult) {
	if s.board != nil {
		if err := s.board.Invalidate(ctx, session.Date); err != nil {
			s.log.WithError(err).Warn("invalidate leaderboard cache")
		}
	}
	if s.events != nil {
		event := domain.CompletionEvent{
			SessionID:     session.ID,
			UserID:        session.UserID,
			Date:          domain.FormatDate(session.Date),
			Rank:          result.Rank,
			FinalScore:    result.FinalScore,
			PointsAwarded: result.TotalBonusPoints,
			PerfectGame:   result.PerfectGame,
			CompletedAt:   completedAt(session),
		}
		if err := s.events.PublishCompletion(ctx, event); err != nil {
			s.log.WithError(err).WithField("session", session.ID).Warn("publish completion event")
		}
	}
}

// Leaderboard returns up to limit positional entries for date; a limit outside
// (0, LeaderboardLimit] means LeaderboardLimit. No set means an empty board.
func (s *TriviaService) Leaderboard(ctx context.Context, date time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 || limit > s.rules.LeaderboardLimit {
		limit = s.rules.LeaderboardLimit
	}

	var (
		version   int64
		cacheable bool
	)
	if s.board != nil {
		entries, ok, err := s.board.Leaderboard(ctx, date)
		if err != nil {
			s.log.WithError(err).Warn("read leaderboard cache")
		} else if ok {
			return truncate(entries, limit), nil
		}
		// Taken before reading sessions so a completion committed after
		// the read makes the write below a no-op.
		if version, err = s.board.Version(ctx, date); err != nil {
			s.log.WithError(err).Warn("read leaderboard cache version")
		} else {
			cacheable = true
		}
	}

	set, err := s.sets.QuestionSet(ctx, date)
	if errors.Is(err, domain.ErrQuestionSetNotFound) {
		return []domain.LeaderboardEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.CompletedSessions(ctx, set.ID, s.rules.LeaderboardLimit)
	if err != nil {
		return nil, err
	}
	entries := s.rules.BuildLeaderboard(sessions)

	if cacheable {
		stored, err := s.board.StoreLeaderboard(ctx, date, version, entries)
		if err != nil {
			s.log.WithError(err).Warn("write leaderboard cache")
		} else if !stored {
			s.log.WithField("date", domain.FormatDate(date)).Debug("leaderboard changed while loading, not cached")
		}
	}
	return truncate(entries, limit), nil
}

func truncate(entries []domain.LeaderboardEntry, limit int) []domain.LeaderboardEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// Stats returns the player's stats; players who never started a game get zeros.
func (s *TriviaService) Stats(ctx context.Context, userID string) (domain.StatsView, error) {
	stats, err := s.store.Stats(ctx, userID)
	if errors.Is(err, domain.ErrStatsNotFound) {
		stats = domain.UserStats{UserID: userID}
	} else if err != nil {
		return domain.StatsView{}, err
	}
	return stats.View(s.rules.PointValue), nil
}

// Redeem debits points from the player's balance.
func (s *TriviaService) Redeem(ctx context.Context, userID string, points int) (domain.Redemption, error) {
	if points <= 0 {
		return domain.Redemption{}, domain.ErrInvalidInput
	}

	var redemption domain.Redemption
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		stats, err := tx.LockStats(ctx, userID)
		if errors.Is(err, domain.ErrStatsNotFound) {
			return domain.ErrInsufficientPoints
		}
		if err != nil {
			return err
		}
		stats, err = Debit(stats, points, s.now())
		if err != nil {
			return err
		}
		if err := tx.SaveStats(ctx, stats); err != nil {
			return err
		}
		redemption = domain.Redemption{
			Redeemed:        points,
			DiscountAmount:  domain.DiscountFor(points, s.rules.PointValue),
			AvailablePoints: stats.AvailablePoints,
		}
		return nil
	})
	if err != nil {
		return domain.Redemption{}, err
	}

	s.log.WithFields(logrus.Fields{"user": userID, "points": points}).Info("points redeemed")
	return redemption, nil
}

// SessionDetail returns one of the player's sessions with its answered
// questions revealed. Unanswered questions stay hidden.
func (s *TriviaService) SessionDetail(ctx context.Context, player domain.Player, sessionID string) (domain.SessionDetail, error) {
	session, err := s.store.Session(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.SessionDetail{}, domain.ErrInvalidSession
	}
	if err != nil {
		return domain.SessionDetail{}, err
	}
	if !session.OwnedBy(player.UserID) {
		return domain.SessionDetail{}, domain.ErrInvalidSession
	}

	set, err := s.sessionSet(ctx, session)
	if err != nil {
		return domain.SessionDetail{}, err
	}
	answers, err := s.store.Answers(ctx, session.ID)
	if err != nil {
		return domain.SessionDetail{}, err
	}

	detail := domain.SessionDetail{
		Session:    session,
		Theme:      set.Theme,
		FinalScore: s.rules.FinalScore(session.Score, session.ElapsedSeconds),
		Answers:    make([]domain.AnsweredQuestion, 0, len(answers)),
	}
	for _, a := range answers {
		q, ok := set.Question(a.QuestionID)
		if !ok {
			continue
		}
		detail.Answers = append(detail.Answers, domain.AnsweredQuestion{
			Question:      q.Public(),
			Answer:        a.Submitted,
			IsCorrect:     a.Correct,
			PointsEarned:  a.PointsEarned,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			AnsweredAt:    a.AnsweredAt,
		})
	}
	return detail, nil
}
