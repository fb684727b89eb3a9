package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/internal/repository"
	"github.com/limbo/linguacards/pkg/entity"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
)

var deckProgressColumns = []string{
	"id", "title", "description", "emoji", "cards_count", "is_public", "sort_order", "created_at",
	"is_subscribed", "progress_percentage", "total_cards_studied", "cards_known", "cards_repeat", "cards_new",
}

func deckProgressRow(rows *pgxmock.Rows, d *entity.DeckWithProgress) {
	rows.AddRow(
		d.ID, d.Title, d.Description, d.Emoji, d.CardsCount, d.IsPublic, d.SortOrder, d.CreatedAt,
		d.IsSubscribed, d.ProgressPercentage, d.TotalCardsStudied, d.CardsKnown, d.CardsRepeat, d.CardsNew,
	)
}

func TestGetDeckByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewDecksRepo(mock)
	deck := entity.Deck{
		ID:          1,
		Title:       "Basic English",
		Description: "The most common words",
		Emoji:       "🇬🇧",
		CardsCount:  100,
		IsPublic:    true,
		SortOrder:   1,
		CreatedAt:   time.Now(),
	}
	query := regexp.QuoteMeta(`SELECT id, title, description, emoji, cards_count, is_public, sort_order, created_at FROM decks WHERE id = $1;`)
	ctx := context.Background()
	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(deck.ID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "title", "description", "emoji", "cards_count", "is_public", "sort_order", "created_at"}).
				AddRow(deck.ID, deck.Title, deck.Description, deck.Emoji, deck.CardsCount, deck.IsPublic, deck.SortOrder, deck.CreatedAt))
		result, err := repo.GetByID(ctx, deck.ID)
		assert.NoError(t, err)
		assert.Equal(t, deck, *result)
	})
	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(deck.ID).
			WillReturnError(pgx.ErrNoRows)
		_, err := repo.GetByID(ctx, deck.ID)
		assert.ErrorIs(t, err, errorvalues.ErrDeckNotFound)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(deck.ID).
			WillReturnError(errors.New("db error"))
		_, err := repo.GetByID(ctx, deck.ID)
		assert.Error(t, err)
	})
}

func TestGetPublicDecks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewDecksRepo(mock)
	userID := int64(7)
	decks := []*entity.DeckWithProgress{
		{
			Deck:         entity.Deck{ID: 1, Title: "Basic English", Emoji: "🇬🇧", CardsCount: 100, IsPublic: true, SortOrder: 1, CreatedAt: time.Now()},
			IsSubscribed: true, ProgressPercentage: 25, TotalCardsStudied: 30, CardsKnown: 25, CardsRepeat: 5, CardsNew: 70,
		},
		{
			Deck:     entity.Deck{ID: 2, Title: "Travel", Emoji: "✈️", CardsCount: 50, IsPublic: true, SortOrder: 2, CreatedAt: time.Now()},
			CardsNew: 50,
		},
	}
	query := regexp.QuoteMeta(`WHERE d.is_public = true`)
	ctx := context.Background()
	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(deckProgressColumns)
		for _, d := range decks {
			deckProgressRow(rows, d)
		}
		mock.ExpectQuery(query).
			WithArgs(userID).
			WillReturnRows(rows)
		result, err := repo.GetPublicDecks(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, len(decks), len(result))
		for i := range result {
			assert.Equal(t, *decks[i], *result[i])
		}
	})
	t.Run("no decks", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows(deckProgressColumns))
		result, err := repo.GetPublicDecks(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, 0, len(result))
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(userID).
			WillReturnError(errors.New("db error"))
		_, err := repo.GetPublicDecks(ctx, userID)
		assert.Error(t, err)
	})
}

func TestGetUserDecks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewDecksRepo(mock)
	userID := int64(7)
	deck := entity.DeckWithProgress{
		Deck:         entity.Deck{ID: 1, Title: "Basic English", CardsCount: 100, IsPublic: true, SortOrder: 1, CreatedAt: time.Now()},
		IsSubscribed: true, ProgressPercentage: 10, TotalCardsStudied: 12, CardsKnown: 10, CardsRepeat: 2, CardsNew: 88,
	}
	query := regexp.QuoteMeta(`INNER JOIN user_decks ud ON ud.deck_id = d.id AND ud.user_id = $1 AND ud.is_active = true`)
	ctx := context.Background()
	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(deckProgressColumns)
		deckProgressRow(rows, &deck)
		mock.ExpectQuery(query).
			WithArgs(userID).
			WillReturnRows(rows)
		result, err := repo.GetUserDecks(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, 1, len(result))
		assert.Equal(t, deck, *result[0])
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(userID).
			WillReturnError(errors.New("db error"))
		_, err := repo.GetUserDecks(ctx, userID)
		assert.Error(t, err)
	})
}

func TestSubscribe(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewDecksRepo(mock)
	userID, deckID := int64(7), int64(1)
	started := time.Now()
	query := regexp.QuoteMeta(`ON CONFLICT (user_id, deck_id)`)
	ctx := context.Background()
	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(userID, deckID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "deck_id", "is_active", "progress_percentage", "total_cards_studied", "started_at", "last_studied_at"}).
				AddRow(int64(5), userID, deckID, true, float64(0), 0, started, (*time.Time)(nil)))
		ud, err := repo.Subscribe(ctx, userID, deckID)
		assert.NoError(t, err)
		assert.Equal(t, int64(5), ud.ID)
		assert.True(t, ud.IsActive)
		assert.Nil(t, ud.LastStudiedAt)
	})
	t.Run("unknown deck", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(userID, deckID).
			WillReturnError(&pgconn.PgError{Code: "23503"})
		_, err := repo.Subscribe(ctx, userID, deckID)
		assert.ErrorIs(t, err, errorvalues.ErrDeckNotFound)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(userID, deckID).
			WillReturnError(errors.New("db error"))
		_, err := repo.Subscribe(ctx, userID, deckID)
		assert.Error(t, err)
	})
}

func TestUnsubscribe(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	repo := repository.NewDecksRepo(mock)
	userID, deckID := int64(7), int64(1)
	query := regexp.QuoteMeta(`UPDATE user_decks SET is_active = false WHERE user_id = $1 AND deck_id = $2;`)
	ctx := context.Background()
	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(userID, deckID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		affected, err := repo.Unsubscribe(ctx, userID, deckID)
		assert.NoError(t, err)
		assert.True(t, affected)
	})
	t.Run("not subscribed", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(userID, deckID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		affected, err := repo.Unsubscribe(ctx, userID, deckID)
		assert.NoError(t, err)
		assert.False(t, affected)
	})
	t.Run("db error", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(userID, deckID).
			WillReturnError(errors.New("db error"))
		_, err := repo.Unsubscribe(ctx, userID, deckID)
		assert.Error(t, err)
	})
}
