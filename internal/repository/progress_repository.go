package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/pkg/entity"
)

const progressColumns = `id, user_id, card_id, status, repetitions, correct_answers, wrong_answers, current_streak, best_streak, accuracy_percentage, last_studied_at`

type ProgressRepository struct {
	conn PgConnection
}

func NewProgressRepo(conn PgConnection) *ProgressRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for progressRepo: " + err.Error())
	}
	return &ProgressRepository{
		conn: conn,
	}
}

func scanProgress(row pgx.Row) (*entity.UserProgress, error) {
	var p entity.UserProgress
	var status string
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.CardID,
		&status,
		&p.Repetitions,
		&p.CorrectAnswers,
		&p.WrongAnswers,
		&p.CurrentStreak,
		&p.BestStreak,
		&p.AccuracyPercentage,
		&p.LastStudiedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = entity.CardStatus(status)
	return &p, nil
}

func (pr *ProgressRepository) GetByUserAndCard(ctx context.Context, userID, cardID int64) (*entity.UserProgress, error) {
	row := pr.conn.QueryRow(ctx, `SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 AND card_id = $2;`, userID, cardID)
	progress, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrProgressNotFound
		}
		return nil, errors.New("getting progress error: " + err.Error())
	}
	return progress, nil
}

// RecordAnswer applies one answer in a single transaction: the progress row
// is locked and rewritten, a review history row is appended, the day's
// counters are upserted and the user_decks snapshot is refreshed. Any
// failure rolls the whole operation back.
//
// The row lock plus the increment-style daily upsert keep concurrent answers
// for the same card or day from losing updates.
func (pr *ProgressRepository) RecordAnswer(ctx context.Context, userID, cardID, deckID int64, correct bool, now time.Time) (*entity.UserProgress, error) {
	tx, err := pr.conn.Begin(ctx)
	if err != nil {
		return nil, errors.New("opening answer transaction error: " + err.Error())
	}
	defer tx.Rollback(ctx)

	var progress *entity.UserProgress
	row := tx.QueryRow(ctx, `SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 AND card_id = $2 FOR UPDATE;`, userID, cardID)
	existing, err := scanProgress(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		progress = entity.NewProgress(userID, cardID, correct, now)
		insRow := tx.QueryRow(ctx, `INSERT INTO user_progress (user_id, card_id, status, repetitions, correct_answers, wrong_answers, current_streak, best_streak, accuracy_percentage, last_studied_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id;`,
			progress.UserID,
			progress.CardID,
			string(progress.Status),
			progress.Repetitions,
			progress.CorrectAnswers,
			progress.WrongAnswers,
			progress.CurrentStreak,
			progress.BestStreak,
			progress.AccuracyPercentage,
			now,
		)
		if err = insRow.Scan(&progress.ID); err != nil {
			return nil, errors.New("inserting progress error: " + err.Error())
		}
	case err != nil:
		return nil, errors.New("reading progress error: " + err.Error())
	default:
		existing.ApplyAnswer(correct, now)
		_, err = tx.Exec(ctx, `UPDATE user_progress SET status = $3, repetitions = $4, correct_answers = $5, wrong_answers = $6, current_streak = $7, best_streak = $8, accuracy_percentage = $9, last_studied_at = $10, updated_at = $10 WHERE user_id = $1 AND card_id = $2;`,
			userID,
			cardID,
			string(existing.Status),
			existing.Repetitions,
			existing.CorrectAnswers,
			existing.WrongAnswers,
			existing.CurrentStreak,
			existing.BestStreak,
			existing.AccuracyPercentage,
			now,
		)
		if err != nil {
			return nil, errors.New("updating progress error: " + err.Error())
		}
		progress = existing
	}

	if _, err = tx.Exec(ctx, `INSERT INTO review_history (user_id, card_id, was_correct, reviewed_at) VALUES ($1, $2, $3, $4);`, userID, cardID, correct, now); err != nil {
		return nil, errors.New("appending review history error: " + err.Error())
	}

	correctDelta, wrongDelta := 0, 1
	if correct {
		correctDelta, wrongDelta = 1, 0
	}
	if _, err = tx.Exec(ctx, `INSERT INTO daily_stats (user_id, date, cards_studied, correct_answers, wrong_answers)
		VALUES ($1, $2, 1, $3, $4)
		ON CONFLICT (user_id, date)
		DO UPDATE SET
			cards_studied = daily_stats.cards_studied + 1,
			correct_answers = daily_stats.correct_answers + $3,
			wrong_answers = daily_stats.wrong_answers + $4;`,
		userID, dateKey(now), correctDelta, wrongDelta); err != nil {
		return nil, errors.New("upserting daily stats error: " + err.Error())
	}

	// No-op when the user isn't subscribed to the card's deck.
	if _, err = tx.Exec(ctx, `UPDATE user_decks SET
			progress_percentage = (
				SELECT COALESCE(ROUND(COUNT(*) FILTER (WHERE up.status = 'known') * 100.0 / NULLIF(COUNT(*), 0), 2), 0)
				FROM cards c
				LEFT JOIN user_progress up ON up.card_id = c.id AND up.user_id = $1
				WHERE c.deck_id = $2 AND c.deleted_at IS NULL
			),
			total_cards_studied = (
				SELECT COUNT(*) FROM user_progress up
				INNER JOIN cards c ON c.id = up.card_id
				WHERE up.user_id = $1 AND c.deck_id = $2 AND c.deleted_at IS NULL
			),
			last_studied_at = $3
		WHERE user_id = $1 AND deck_id = $2;`, userID, deckID, now); err != nil {
		return nil, errors.New("refreshing deck snapshot error: " + err.Error())
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, errors.New("committing answer transaction error: " + err.Error())
	}
	return progress, nil
}

func (pr *ProgressRepository) GetDailyStats(ctx context.Context, userID int64, day time.Time) (*entity.DailyStat, error) {
	var stat entity.DailyStat
	row := pr.conn.QueryRow(ctx, `SELECT cards_studied, correct_answers, wrong_answers FROM daily_stats WHERE user_id = $1 AND date = $2;`, userID, dateKey(day))
	err := row.Scan(&stat.CardsStudied, &stat.CorrectAnswers, &stat.WrongAnswers)
	if err != nil {
		// No row yet today means zero counters, not a failure
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.DailyStat{}, nil
		}
		return nil, errors.New("getting daily stats error: " + err.Error())
	}
	return &stat, nil
}

// ResetDailyCards zeroes only cards_studied for the given day; correct and
// wrong counters stay as a historical record.
func (pr *ProgressRepository) ResetDailyCards(ctx context.Context, userID int64, day time.Time) error {
	_, err := pr.conn.Exec(ctx, `UPDATE daily_stats SET cards_studied = 0 WHERE user_id = $1 AND date = $2;`, userID, dateKey(day))
	if err != nil {
		return errors.New("resetting daily cards error: " + err.Error())
	}
	return nil
}

func (pr *ProgressRepository) GetUserStats(ctx context.Context, userID int64, day time.Time) (*entity.UserStats, error) {
	var stats entity.UserStats
	row := pr.conn.QueryRow(ctx, `SELECT
			COUNT(*) AS total_studied,
			COUNT(*) FILTER (WHERE status = 'known') AS cards_known,
			COUNT(*) FILTER (WHERE status = 'repeat') AS cards_repeat,
			COUNT(*) FILTER (WHERE status = 'new') AS cards_new,
			COALESCE(AVG(accuracy_percentage), 0) AS avg_accuracy
		FROM user_progress
		WHERE user_id = $1;`, userID)
	if err := row.Scan(&stats.TotalStudied, &stats.CardsKnown, &stats.CardsRepeat, &stats.CardsNew, &stats.AvgAccuracy); err != nil {
		return nil, errors.New("getting user stats error: " + err.Error())
	}
	daily, err := pr.GetDailyStats(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	stats.Today = *daily
	return &stats, nil
}
