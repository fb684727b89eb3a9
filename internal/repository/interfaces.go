package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/limbo/linguacards/pkg/entity"
)

type UsersRepositoryI interface {
	// Creates new user. Display fields are taken from the telegram payload
	Create(ctx context.Context, user *entity.User) (*entity.User, error)
	// Looks up user by telegram id. Used by the auth middleware
	FindByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error)
	// Looks up user by internal id
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	// Applies the non-nil fields of upd and returns the fresh row
	Update(ctx context.Context, id int64, upd *entity.UserUpdate) (*entity.User, error)
}

type DecksRepositoryI interface {
	// Searches deck with given id
	GetByID(ctx context.Context, id int64) (*entity.Deck, error)
	// Lists public decks with the caller's subscription flag and progress aggregates
	GetPublicDecks(ctx context.Context, userID int64) ([]*entity.DeckWithProgress, error)
	// Lists decks the user is actively subscribed to
	GetUserDecks(ctx context.Context, userID int64) ([]*entity.DeckWithProgress, error)
	// Upserts an active subscription row, unique on (user, deck)
	Subscribe(ctx context.Context, userID, deckID int64) (*entity.UserDeck, error)
	// Deactivates a subscription. Reports whether a row was affected
	Unsubscribe(ctx context.Context, userID, deckID int64) (bool, error)
}

type CardsRepositoryI interface {
	// Searches card with given id. Soft-deleted cards are treated as missing
	GetByID(ctx context.Context, id int64) (*entity.Card, error)
	// Lists a deck's cards in their stable order
	GetByDeckID(ctx context.Context, deckID int64) ([]*entity.Card, error)
	// Prioritized study set for one deck: repeat, then new, then known.
	// limit <= 0 returns the full set
	GetForStudy(ctx context.Context, deckID, userID int64, limit int) ([]*entity.StudyCard, error)
	// Prioritized study set across all active subscriptions, shuffled inside
	// each status bucket
	GetAllForStudy(ctx context.Context, userID int64, limit int) ([]*entity.StudyCard, error)
	// Status population counts for one deck, independent of any limit
	GetDeckStudyStats(ctx context.Context, deckID, userID int64) (*entity.StudyStats, error)
	// Status population counts across all active subscriptions
	GetAllDecksStudyStats(ctx context.Context, userID int64) (*entity.StudyStats, error)
}

type ProgressRepositoryI interface {
	// Progress for one (user, card) pair
	GetByUserAndCard(ctx context.Context, userID, cardID int64) (*entity.UserProgress, error)
	// Applies one answer atomically: progress row, review history, daily
	// stats and the user_decks snapshot all change in one transaction
	RecordAnswer(ctx context.Context, userID, cardID, deckID int64, correct bool, now time.Time) (*entity.UserProgress, error)
	// Daily counters for the calendar date of day; zero-valued when absent
	GetDailyStats(ctx context.Context, userID int64, day time.Time) (*entity.DailyStat, error)
	// Zeroes cards_studied for the calendar date of day (limit unlock)
	ResetDailyCards(ctx context.Context, userID int64, day time.Time) error
	// Lifetime aggregates plus today's counters
	GetUserStats(ctx context.Context, userID int64, day time.Time) (*entity.UserStats, error)
}

type DBConfig interface {
	ConnString() string
}

type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGCfg struct {
	Address  string
	Username string
	Password string
	DB       string
}

func (pgcfg *PGCfg) ConnString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s/%s", pgcfg.Username, pgcfg.Password, pgcfg.Address, pgcfg.DB)
}

// dateLayout is the key format of daily_stats.date. Days are counted on the
// UTC calendar.
const dateLayout = "2006-01-02"

func dateKey(day time.Time) string {
	return day.UTC().Format(dateLayout)
}
