package repository

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/pkg/entity"
)

// deckProgressColumns joins each deck with the caller's per-deck aggregates.
// Soft-deleted cards are excluded from every count.
const deckProgressQuery = `SELECT
		d.id, d.title, d.description, d.emoji, d.cards_count, d.is_public, d.sort_order, d.created_at,
		CASE WHEN ud.id IS NOT NULL AND ud.is_active = true THEN true ELSE false END AS is_subscribed,
		COALESCE((
			SELECT ROUND(COUNT(*) FILTER (WHERE up.status = 'known') * 100.0 / NULLIF(d.cards_count, 0), 0)
			FROM cards c
			LEFT JOIN user_progress up ON up.card_id = c.id AND up.user_id = $1
			WHERE c.deck_id = d.id AND c.deleted_at IS NULL
		), 0) AS progress_percentage,
		COALESCE((
			SELECT COUNT(*) FROM user_progress up
			INNER JOIN cards c ON c.id = up.card_id
			WHERE c.deck_id = d.id AND c.deleted_at IS NULL AND up.user_id = $1
		), 0) AS total_cards_studied,
		COALESCE((
			SELECT COUNT(*) FROM cards c
			LEFT JOIN user_progress up ON up.card_id = c.id AND up.user_id = $1
			WHERE c.deck_id = d.id AND c.deleted_at IS NULL AND up.status = 'known'
		), 0) AS cards_known,
		COALESCE((
			SELECT COUNT(*) FROM cards c
			LEFT JOIN user_progress up ON up.card_id = c.id AND up.user_id = $1
			WHERE c.deck_id = d.id AND c.deleted_at IS NULL AND up.status = 'repeat'
		), 0) AS cards_repeat,
		COALESCE((
			SELECT COUNT(*) FROM cards c
			LEFT JOIN user_progress up ON up.card_id = c.id AND up.user_id = $1
			WHERE c.deck_id = d.id AND c.deleted_at IS NULL AND (up.status IS NULL OR up.status = 'new')
		), 0) AS cards_new
	FROM decks d`

type DecksRepository struct {
	conn PgConnection
}

func NewDecksRepo(conn PgConnection) *DecksRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for decksRepo: " + err.Error())
	}
	return &DecksRepository{
		conn: conn,
	}
}

func (dr *DecksRepository) GetByID(ctx context.Context, id int64) (*entity.Deck, error) {
	var deck entity.Deck
	row := dr.conn.QueryRow(ctx, `SELECT id, title, description, emoji, cards_count, is_public, sort_order, created_at FROM decks WHERE id = $1;`, id)
	err := row.Scan(&deck.ID, &deck.Title, &deck.Description, &deck.Emoji, &deck.CardsCount, &deck.IsPublic, &deck.SortOrder, &deck.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrDeckNotFound
		}
		return nil, errors.New("getting deck by id error: " + err.Error())
	}
	return &deck, nil
}

func (dr *DecksRepository) GetPublicDecks(ctx context.Context, userID int64) ([]*entity.DeckWithProgress, error) {
	rows, err := dr.conn.Query(ctx, deckProgressQuery+`
		LEFT JOIN user_decks ud ON ud.deck_id = d.id AND ud.user_id = $1 AND ud.is_active = true
		WHERE d.is_public = true
		ORDER BY d.sort_order, d.created_at;`, userID)
	if err != nil {
		return nil, errors.New("getting public decks error: " + err.Error())
	}
	defer rows.Close()
	return collectDecks(rows)
}

func (dr *DecksRepository) GetUserDecks(ctx context.Context, userID int64) ([]*entity.DeckWithProgress, error) {
	rows, err := dr.conn.Query(ctx, deckProgressQuery+`
		INNER JOIN user_decks ud ON ud.deck_id = d.id AND ud.user_id = $1 AND ud.is_active = true
		ORDER BY ud.last_studied_at DESC NULLS LAST, ud.started_at DESC;`, userID)
	if err != nil {
		return nil, errors.New("getting user decks error: " + err.Error())
	}
	defer rows.Close()
	return collectDecks(rows)
}

func collectDecks(rows pgx.Rows) ([]*entity.DeckWithProgress, error) {
	decks := make([]*entity.DeckWithProgress, 0)
	for rows.Next() {
		d := entity.DeckWithProgress{}
		err := rows.Scan(
			&d.ID, &d.Title, &d.Description, &d.Emoji, &d.CardsCount, &d.IsPublic, &d.SortOrder, &d.CreatedAt,
			&d.IsSubscribed, &d.ProgressPercentage, &d.TotalCardsStudied, &d.CardsKnown, &d.CardsRepeat, &d.CardsNew,
		)
		if err != nil {
			return nil, errors.New("deck row parsing error: " + err.Error())
		}
		decks = append(decks, &d)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected deck rows error: " + rows.Err().Error())
	}
	return decks, nil
}

// Subscribe never inserts a second row for the same (user, deck) pair: a
// previous soft unsubscribe is reactivated instead.
func (dr *DecksRepository) Subscribe(ctx context.Context, userID, deckID int64) (*entity.UserDeck, error) {
	var ud entity.UserDeck
	row := dr.conn.QueryRow(ctx, `INSERT INTO user_decks (user_id, deck_id, is_active, started_at)
		VALUES ($1, $2, true, NOW())
		ON CONFLICT (user_id, deck_id)
		DO UPDATE SET is_active = true, last_studied_at = NOW()
		RETURNING id, user_id, deck_id, is_active, progress_percentage, total_cards_studied, started_at, last_studied_at;`,
		userID,
		deckID,
	)
	err := row.Scan(&ud.ID, &ud.UserID, &ud.DeckID, &ud.IsActive, &ud.ProgressPercentage, &ud.TotalCardsStudied, &ud.StartedAt, &ud.LastStudiedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// FK violation
			case "23503":
				return nil, errorvalues.ErrDeckNotFound
			}
		}
		return nil, errors.New("subscribing to deck error: " + err.Error())
	}
	return &ud, nil
}

func (dr *DecksRepository) Unsubscribe(ctx context.Context, userID, deckID int64) (bool, error) {
	ct, err := dr.conn.Exec(ctx, `UPDATE user_decks SET is_active = false WHERE user_id = $1 AND deck_id = $2;`, userID, deckID)
	if err != nil {
		return false, errors.New("unsubscribing from deck error: " + err.Error())
	}
	return ct.RowsAffected() > 0, nil
}
