package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/internal/service"
	"github.com/limbo/linguacards/pkg/entity"
	"github.com/limbo/linguacards/pkg/telegramauth"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	service.InitValidator()
	m.Run()
}

type mockState int

const (
	stateSuccess mockState = iota
	stateDBError
	stateUserNotFound
	stateUserPremium
	stateUserPremiumExpired
)

// Variables for tests
var (
	userID     = int64(7)
	telegramID = int64(111222333)
	testUser   = entity.User{
		ID:           userID,
		TelegramID:   telegramID,
		LanguageCode: "ru",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	testTgUser = telegramauth.TelegramUser{
		ID:           telegramID,
		FirstName:    "Anna",
		Username:     "anna_k",
		LanguageCode: "ru",
	}
)

type usersRepoMock struct {
	state      mockState
	lastUpdate *entity.UserUpdate
	created    bool
}

func (urmock *usersRepoMock) Create(ctx context.Context, user *entity.User) (*entity.User, error) {
	if urmock.state == stateDBError {
		return nil, errors.New("db error")
	}
	urmock.created = true
	created := testUser
	created.Username = user.Username
	created.FirstName = user.FirstName
	created.LanguageCode = user.LanguageCode
	return &created, nil
}

func (urmock *usersRepoMock) FindByTelegramID(ctx context.Context, tid int64) (*entity.User, error) {
	switch urmock.state {
	case stateUserNotFound:
		return nil, errorvalues.ErrUserNotFound
	case stateDBError:
		return nil, errors.New("db error")
	default:
		u := testUser
		return &u, nil
	}
}

func (urmock *usersRepoMock) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	switch urmock.state {
	case stateUserNotFound:
		return nil, errorvalues.ErrUserNotFound
	case stateDBError:
		return nil, errors.New("db error")
	case stateUserPremium:
		u := testUser
		u.IsPremium = true
		until := time.Now().UTC().Add(time.Hour)
		u.PremiumUntil = &until
		return &u, nil
	case stateUserPremiumExpired:
		u := testUser
		u.IsPremium = true
		until := time.Now().UTC().Add(-time.Hour)
		u.PremiumUntil = &until
		return &u, nil
	default:
		u := testUser
		return &u, nil
	}
}

func (urmock *usersRepoMock) Update(ctx context.Context, id int64, upd *entity.UserUpdate) (*entity.User, error) {
	if urmock.state == stateDBError {
		return nil, errors.New("db error")
	}
	urmock.lastUpdate = upd
	u := testUser
	if upd.IsPremium != nil {
		u.IsPremium = *upd.IsPremium
	}
	if upd.PremiumUntil != nil && !upd.ClearPremiumUntil {
		u.PremiumUntil = upd.PremiumUntil
	}
	return &u, nil
}

type statsRepoMock struct {
	state        mockState
	cardsStudied int
	resetCalled  bool
}

func (srmock *statsRepoMock) GetByUserAndCard(ctx context.Context, userID, cardID int64) (*entity.UserProgress, error) {
	return nil, errorvalues.ErrProgressNotFound
}

func (srmock *statsRepoMock) RecordAnswer(ctx context.Context, userID, cardID, deckID int64, correct bool, now time.Time) (*entity.UserProgress, error) {
	return nil, errors.New("unexpected call")
}

func (srmock *statsRepoMock) GetDailyStats(ctx context.Context, userID int64, day time.Time) (*entity.DailyStat, error) {
	if srmock.state == stateDBError {
		return nil, errors.New("db error")
	}
	return &entity.DailyStat{CardsStudied: srmock.cardsStudied}, nil
}

func (srmock *statsRepoMock) ResetDailyCards(ctx context.Context, userID int64, day time.Time) error {
	if srmock.state == stateDBError {
		return errors.New("db error")
	}
	srmock.resetCalled = true
	srmock.cardsStudied = 0
	return nil
}

func (srmock *statsRepoMock) GetUserStats(ctx context.Context, userID int64, day time.Time) (*entity.UserStats, error) {
	if srmock.state == stateDBError {
		return nil, errors.New("db error")
	}
	return &entity.UserStats{TotalStudied: 30, CardsKnown: 25, CardsRepeat: 5}, nil
}

func TestFindOrCreate(t *testing.T) {
	usersMock := &usersRepoMock{}
	statsMock := &statsRepoMock{}
	s := service.NewUserService(usersMock, statsMock, 0)
	ctx := context.Background()
	t.Run("creates unknown user", func(t *testing.T) {
		usersMock.state = stateUserNotFound
		user, err := s.FindOrCreate(ctx, &testTgUser)
		assert.NoError(t, err)
		assert.True(t, usersMock.created)
		assert.Equal(t, telegramID, user.TelegramID)
		assert.Equal(t, "ru", user.LanguageCode)
	})
	t.Run("refreshes known user", func(t *testing.T) {
		usersMock.state = stateSuccess
		usersMock.lastUpdate = nil
		_, err := s.FindOrCreate(ctx, &testTgUser)
		assert.NoError(t, err)
		if assert.NotNil(t, usersMock.lastUpdate) {
			assert.Equal(t, "anna_k", *usersMock.lastUpdate.Username)
			assert.Equal(t, "Anna", *usersMock.lastUpdate.FirstName)
			// Premium fields never change on authentication
			assert.Nil(t, usersMock.lastUpdate.IsPremium)
			assert.Nil(t, usersMock.lastUpdate.PremiumUntil)
		}
	})
	t.Run("empty telegram user", func(t *testing.T) {
		_, err := s.FindOrCreate(ctx, nil)
		assert.Error(t, err)
		_, err = s.FindOrCreate(ctx, &telegramauth.TelegramUser{})
		assert.Error(t, err)
	})
	t.Run("db error", func(t *testing.T) {
		usersMock.state = stateDBError
		_, err := s.FindOrCreate(ctx, &testTgUser)
		assert.Error(t, err)
	})
}

func TestDailyLimitInfo(t *testing.T) {
	usersMock := &usersRepoMock{}
	statsMock := &statsRepoMock{}
	s := service.NewUserService(usersMock, statsMock, 0)
	ctx := context.Background()
	now := time.Now().UTC()
	t.Run("free tier under limit", func(t *testing.T) {
		usersMock.state = stateSuccess
		statsMock.cardsStudied = 10
		info, err := s.DailyLimitInfoFor(ctx, userID, now)
		assert.NoError(t, err)
		assert.Equal(t, 10, info.CardsStudiedToday)
		assert.Equal(t, service.DefaultDailyCardsLimit, info.DailyLimit)
		assert.Equal(t, 30, info.RemainingCards)
		assert.False(t, info.IsLimitExceeded)
		assert.False(t, info.IsPremium)
	})
	t.Run("free tier at limit", func(t *testing.T) {
		statsMock.cardsStudied = 40
		info, err := s.DailyLimitInfoFor(ctx, userID, now)
		assert.NoError(t, err)
		assert.Equal(t, 0, info.RemainingCards)
		assert.True(t, info.IsLimitExceeded)
	})
	t.Run("premium has no limit", func(t *testing.T) {
		usersMock.state = stateUserPremium
		statsMock.cardsStudied = 500
		info, err := s.DailyLimitInfoFor(ctx, userID, now)
		assert.NoError(t, err)
		assert.Equal(t, 500, info.CardsStudiedToday)
		assert.Equal(t, -1, info.DailyLimit)
		assert.Equal(t, -1, info.RemainingCards)
		assert.False(t, info.IsLimitExceeded)
		assert.True(t, info.IsPremium)
	})
	t.Run("expired premium is cleared lazily", func(t *testing.T) {
		usersMock.state = stateUserPremiumExpired
		usersMock.lastUpdate = nil
		statsMock.cardsStudied = 40
		info, err := s.DailyLimitInfoFor(ctx, userID, now)
		assert.NoError(t, err)
		if assert.NotNil(t, usersMock.lastUpdate) {
			assert.False(t, *usersMock.lastUpdate.IsPremium)
			assert.True(t, usersMock.lastUpdate.ClearPremiumUntil)
		}
		assert.False(t, info.IsPremium)
		assert.True(t, info.IsLimitExceeded)
	})
	t.Run("user not found", func(t *testing.T) {
		usersMock.state = stateUserNotFound
		_, err := s.DailyLimitInfoFor(ctx, userID, now)
		assert.ErrorIs(t, err, errorvalues.ErrUserNotFound)
	})
	t.Run("stats error", func(t *testing.T) {
		usersMock.state = stateSuccess
		statsMock.state = stateDBError
		_, err := s.DailyLimitInfoFor(ctx, userID, now)
		assert.Error(t, err)
		statsMock.state = stateSuccess
	})
}

func TestGrantPremium(t *testing.T) {
	usersMock := &usersRepoMock{}
	statsMock := &statsRepoMock{}
	s := service.NewUserService(usersMock, statsMock, 0)
	ctx := context.Background()
	t.Run("for a day", func(t *testing.T) {
		usersMock.lastUpdate = nil
		user, err := s.GrantPremium(ctx, userID, service.PremiumDay)
		assert.NoError(t, err)
		assert.True(t, user.IsPremium)
		if assert.NotNil(t, usersMock.lastUpdate.PremiumUntil) {
			assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 1), *usersMock.lastUpdate.PremiumUntil, time.Minute)
		}
	})
	t.Run("for a month", func(t *testing.T) {
		usersMock.lastUpdate = nil
		_, err := s.GrantPremium(ctx, userID, service.PremiumMonth)
		assert.NoError(t, err)
		if assert.NotNil(t, usersMock.lastUpdate.PremiumUntil) {
			assert.WithinDuration(t, time.Now().UTC().AddDate(0, 1, 0), *usersMock.lastUpdate.PremiumUntil, time.Minute)
		}
	})
	t.Run("lifetime has no expiry", func(t *testing.T) {
		usersMock.lastUpdate = nil
		_, err := s.GrantPremium(ctx, userID, service.PremiumLifetime)
		assert.NoError(t, err)
		assert.Nil(t, usersMock.lastUpdate.PremiumUntil)
		assert.True(t, usersMock.lastUpdate.ClearPremiumUntil)
	})
	t.Run("unknown duration", func(t *testing.T) {
		_, err := s.GrantPremium(ctx, userID, "year")
		assert.ErrorIs(t, err, errorvalues.ErrValidation)
	})
}

func TestUnlockToday(t *testing.T) {
	usersMock := &usersRepoMock{}
	statsMock := &statsRepoMock{}
	s := service.NewUserService(usersMock, statsMock, 0)
	ctx := context.Background()
	t.Run("resets and reports fresh quota", func(t *testing.T) {
		statsMock.cardsStudied = 40
		info, err := s.UnlockToday(ctx, userID)
		assert.NoError(t, err)
		assert.True(t, statsMock.resetCalled)
		assert.Equal(t, 0, info.CardsStudiedToday)
		assert.False(t, info.IsLimitExceeded)
	})
	t.Run("stats error", func(t *testing.T) {
		statsMock.state = stateDBError
		_, err := s.UnlockToday(ctx, userID)
		assert.Error(t, err)
		statsMock.state = stateSuccess
	})
}

func TestGetUserStatsService(t *testing.T) {
	usersMock := &usersRepoMock{}
	statsMock := &statsRepoMock{}
	s := service.NewUserService(usersMock, statsMock, 0)
	ctx := context.Background()
	t.Run("success", func(t *testing.T) {
		stats, err := s.GetStats(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, 30, stats.TotalStudied)
	})
	t.Run("db error", func(t *testing.T) {
		statsMock.state = stateDBError
		_, err := s.GetStats(ctx, userID)
		assert.Error(t, err)
		statsMock.state = stateSuccess
	})
}
