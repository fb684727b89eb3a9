package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/pkg/entity"
)

const userColumns = `id, telegram_id, username, first_name, last_name, language_code, is_premium, premium_until, daily_cards_limit, created_at, updated_at`

type UsersRepository struct {
	conn PgConnection
}

func NewUsersRepo(conn PgConnection) *UsersRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for usersRepo: " + err.Error())
	}
	return &UsersRepository{
		conn: conn,
	}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.LanguageCode,
		&user.IsPremium,
		&user.PremiumUntil,
		&user.DailyCardsLimit,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *UsersRepository) Create(ctx context.Context, user *entity.User) (*entity.User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	row := ur.conn.QueryRow(ctx, `INSERT INTO users (telegram_id, username, first_name, last_name, language_code) VALUES ($1, $2, $3, $4, $5) RETURNING `+userColumns+`;`,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// Unique violation
			case "23505":
				return ur.FindByTelegramID(ctx, user.TelegramID)
			}
		}
		return nil, errors.New("creating user db error: " + err.Error())
	}
	return created, nil
}

func (ur *UsersRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error) {
	row := ur.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1;`, telegramID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("searching user by telegram id error: " + err.Error())
	}
	return user, nil
}

func (ur *UsersRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	row := ur.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1;`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("searching user by id error: " + err.Error())
	}
	return user, nil
}

// Update builds the SET clause from the non-nil fields of upd only, so
// callers change exactly the columns they name.
func (ur *UsersRepository) Update(ctx context.Context, id int64, upd *entity.UserUpdate) (*entity.User, error) {
	if upd == nil {
		return nil, errors.New("user update is nil")
	}
	sets := make([]string, 0, 8)
	args := make([]any, 0, 9)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Username != nil {
		set("username", *upd.Username)
	}
	if upd.FirstName != nil {
		set("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		set("last_name", *upd.LastName)
	}
	if upd.LanguageCode != nil {
		set("language_code", *upd.LanguageCode)
	}
	if upd.IsPremium != nil {
		set("is_premium", *upd.IsPremium)
	}
	switch {
	case upd.ClearPremiumUntil:
		sets = append(sets, "premium_until = NULL")
	case upd.PremiumUntil != nil:
		set("premium_until", *upd.PremiumUntil)
	}
	if upd.DailyCardsLimit != nil {
		set("daily_cards_limit", *upd.DailyCardsLimit)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s;`, strings.Join(sets, ", "), len(args), userColumns)
	user, err := scanUser(ur.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("updating user error: " + err.Error())
	}
	return user, nil
}
