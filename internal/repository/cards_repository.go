package repository

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"

	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/pkg/entity"
)

type CardsRepository struct {
	conn PgConnection
}

func NewCardsRepo(conn PgConnection) *CardsRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for cardsRepo: " + err.Error())
	}
	return &CardsRepository{
		conn: conn,
	}
}

func (cr *CardsRepository) GetByID(ctx context.Context, id int64) (*entity.Card, error) {
	var card entity.Card
	row := cr.conn.QueryRow(ctx, `SELECT id, deck_id, front_text, back_text, front_example, back_example, sort_order FROM cards WHERE id = $1 AND deleted_at IS NULL;`, id)
	err := row.Scan(&card.ID, &card.DeckID, &card.FrontText, &card.BackText, &card.FrontExample, &card.BackExample, &card.SortOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrCardNotFound
		}
		return nil, errors.New("getting card by id error: " + err.Error())
	}
	return &card, nil
}

func (cr *CardsRepository) GetByDeckID(ctx context.Context, deckID int64) ([]*entity.Card, error) {
	rows, err := cr.conn.Query(ctx, `SELECT id, deck_id, front_text, back_text, front_example, back_example, sort_order FROM cards WHERE deck_id = $1 AND deleted_at IS NULL ORDER BY sort_order, id;`, deckID)
	if err != nil {
		return nil, errors.New("getting cards by deck error: " + err.Error())
	}
	defer rows.Close()
	cards := make([]*entity.Card, 0)
	for rows.Next() {
		c := entity.Card{}
		err = rows.Scan(&c.ID, &c.DeckID, &c.FrontText, &c.BackText, &c.FrontExample, &c.BackExample, &c.SortOrder)
		if err != nil {
			return nil, errors.New("card row parsing error: " + err.Error())
		}
		cards = append(cards, &c)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected card rows error: " + rows.Err().Error())
	}
	return cards, nil
}

// GetForStudy orders one deck's cards for a session: repeat before new
// before known, oldest reviews first inside a bucket (never-studied cards
// lead), ties broken by the deck's stable sort order.
func (cr *CardsRepository) GetForStudy(ctx context.Context, deckID, userID int64, limit int) ([]*entity.StudyCard, error) {
	query := `SELECT
			c.id, c.deck_id, c.front_text, c.back_text, c.front_example, c.back_example, c.sort_order,
			COALESCE(up.status, 'new') AS status,
			COALESCE(up.repetitions, 0) AS repetitions,
			COALESCE(up.correct_answers, 0) AS correct_answers,
			COALESCE(up.wrong_answers, 0) AS wrong_answers,
			COALESCE(up.current_streak, 0) AS current_streak,
			up.last_studied_at
		FROM cards c
		LEFT JOIN user_progress up ON up.card_id = c.id AND up.user_id = $2
		WHERE c.deck_id = $1 AND c.deleted_at IS NULL
		ORDER BY
			CASE COALESCE(up.status, 'new') WHEN 'repeat' THEN 1 WHEN 'new' THEN 2 WHEN 'known' THEN 3 END,
			up.last_studied_at ASC NULLS FIRST,
			c.sort_order`
	args := []any{deckID, userID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := cr.conn.Query(ctx, query+`;`, args...)
	if err != nil {
		return nil, errors.New("getting study cards error: " + err.Error())
	}
	defer rows.Close()
	return collectStudyCards(rows, false)
}

// GetAllForStudy spans every active subscription. Inside each status bucket
// the order is randomized per call on purpose.
func (cr *CardsRepository) GetAllForStudy(ctx context.Context, userID int64, limit int) ([]*entity.StudyCard, error) {
	query := `SELECT
			c.id, c.deck_id, c.front_text, c.back_text, c.front_example, c.back_example, c.sort_order,
			d.title AS deck_title,
			d.emoji AS deck_emoji,
			COALESCE(up.status, 'new') AS status,
			COALESCE(up.repetitions, 0) AS repetitions,
			COALESCE(up.correct_answers, 0) AS correct_answers,
			COALESCE(up.wrong_answers, 0) AS wrong_answers,
			COALESCE(up.current_streak, 0) AS current_streak,
			up.last_studied_at
		FROM cards c
		INNER JOIN user_decks ud ON ud.deck_id = c.deck_id AND ud.user_id = $1 AND ud.is_active = true
		INNER JOIN decks d ON d.id = c.deck_id
		LEFT JOIN user_progress up ON up.card_id = c.id AND up.user_id = $1
		WHERE c.deleted_at IS NULL
		ORDER BY
			CASE COALESCE(up.status, 'new') WHEN 'repeat' THEN 1 WHEN 'new' THEN 2 WHEN 'known' THEN 3 END,
			RANDOM()`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := cr.conn.Query(ctx, query+`;`, args...)
	if err != nil {
		return nil, errors.New("getting all study cards error: " + err.Error())
	}
	defer rows.Close()
	return collectStudyCards(rows, true)
}

func collectStudyCards(rows pgx.Rows, withDeck bool) ([]*entity.StudyCard, error) {
	cards := make([]*entity.StudyCard, 0)
	for rows.Next() {
		sc := entity.StudyCard{}
		var status string
		dest := []any{&sc.ID, &sc.DeckID, &sc.FrontText, &sc.BackText, &sc.FrontExample, &sc.BackExample, &sc.SortOrder}
		if withDeck {
			dest = append(dest, &sc.DeckTitle, &sc.DeckEmoji)
		}
		dest = append(dest, &status, &sc.Repetitions, &sc.CorrectAnswers, &sc.WrongAnswers, &sc.CurrentStreak, &sc.LastStudiedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.New("study card row parsing error: " + err.Error())
		}
		sc.Status = entity.CardStatus(status)
		cards = append(cards, &sc)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected study card rows error: " + rows.Err().Error())
	}
	return cards, nil
}

func (cr *CardsRepository) GetDeckStudyStats(ctx context.Context, deckID, userID int64) (*entity.StudyStats, error) {
	row := cr.conn.QueryRow(ctx, `SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE COALESCE(up.status, 'new') = 'new') AS new_count,
			COUNT(*) FILTER (WHERE up.status = 'repeat') AS repeat_count,
			COUNT(*) FILTER (WHERE up.status = 'known') AS known_count
		FROM cards c
		LEFT JOIN user_progress up ON up.card_id = c.id AND up.user_id = $2
		WHERE c.deck_id = $1 AND c.deleted_at IS NULL;`, deckID, userID)
	var stats entity.StudyStats
	if err := row.Scan(&stats.Total, &stats.New, &stats.Repeat, &stats.Known); err != nil {
		return nil, errors.New("getting deck study stats error: " + err.Error())
	}
	return &stats, nil
}

func (cr *CardsRepository) GetAllDecksStudyStats(ctx context.Context, userID int64) (*entity.StudyStats, error) {
	row := cr.conn.QueryRow(ctx, `SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE COALESCE(up.status, 'new') = 'new') AS new_count,
			COUNT(*) FILTER (WHERE up.status = 'repeat') AS repeat_count,
			COUNT(*) FILTER (WHERE up.status = 'known') AS known_count
		FROM cards c
		INNER JOIN user_decks ud ON ud.deck_id = c.deck_id AND ud.user_id = $1 AND ud.is_active = true
		LEFT JOIN user_progress up ON up.card_id = c.id AND up.user_id = $1
		WHERE c.deleted_at IS NULL;`, userID)
	var stats entity.StudyStats
	if err := row.Scan(&stats.Total, &stats.New, &stats.Repeat, &stats.Known); err != nil {
		return nil, errors.New("getting all decks study stats error: " + err.Error())
	}
	return &stats, nil
}
