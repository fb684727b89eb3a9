package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/internal/repository"
	"github.com/limbo/linguacards/pkg/entity"
	"github.com/limbo/linguacards/pkg/telegramauth"
)

// DefaultDailyCardsLimit is the free-tier quota of answers per UTC day.
const DefaultDailyCardsLimit = 40

type UserService struct {
	usersRepo  repository.UsersRepositoryI
	statsRepo  repository.ProgressRepositoryI
	dailyLimit int
}

func NewUserService(usersRepo repository.UsersRepositoryI, statsRepo repository.ProgressRepositoryI, dailyLimit int) *UserService {
	if usersRepo == nil || statsRepo == nil {
		log.Fatal("on user service provided nil repos")
	}
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyCardsLimit
	}
	return &UserService{
		usersRepo:  usersRepo,
		statsRepo:  statsRepo,
		dailyLimit: dailyLimit,
	}
}

func (us *UserService) FindOrCreate(ctx context.Context, tgUser *telegramauth.TelegramUser) (*entity.User, error) {
	if tgUser == nil || tgUser.ID == 0 {
		return nil, errors.New("telegram user is empty")
	}
	user, err := us.usersRepo.FindByTelegramID(ctx, tgUser.ID)
	if err != nil {
		if !errors.Is(err, errorvalues.ErrUserNotFound) {
			return nil, errors.New("users repository error: " + err.Error())
		}
		user, err = us.usersRepo.Create(ctx, &entity.User{
			TelegramID:   tgUser.ID,
			Username:     optional(tgUser.Username),
			FirstName:    optional(tgUser.FirstName),
			LastName:     optional(tgUser.LastName),
			LanguageCode: languageOrDefault(tgUser.LanguageCode),
		})
		if err != nil {
			return nil, errors.New("users repository error: " + err.Error())
		}
		return user, nil
	}
	// Keep display fields fresh on every authentication
	upd := entity.UserUpdate{
		Username:  optional(tgUser.Username),
		FirstName: optional(tgUser.FirstName),
		LastName:  optional(tgUser.LastName),
	}
	if tgUser.LanguageCode != "" {
		upd.LanguageCode = &tgUser.LanguageCode
	}
	user, err = us.usersRepo.Update(ctx, user.ID, &upd)
	if err != nil {
		return nil, errors.New("users repository error: " + err.Error())
	}
	return user, nil
}

func (us *UserService) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	user, err := us.usersRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			return nil, err
		}
		return nil, errors.New("users repository error: " + err.Error())
	}
	return user, nil
}

func (us *UserService) GetDailyLimitInfo(ctx context.Context, userID int64) (*entity.DailyLimitInfo, error) {
	return us.DailyLimitInfoFor(ctx, userID, time.Now().UTC())
}

func (us *UserService) DailyLimitInfoFor(ctx context.Context, userID int64, at time.Time) (*entity.DailyLimitInfo, error) {
	user, err := us.usersRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			return nil, err
		}
		return nil, errors.New("users repository error: " + err.Error())
	}
	if user.IsPremium {
		if user.PremiumUntil == nil || user.PremiumUntil.After(at) {
			stat, err := us.statsRepo.GetDailyStats(ctx, userID, at)
			if err != nil {
				return nil, errors.New("stats repository error: " + err.Error())
			}
			return &entity.DailyLimitInfo{
				CardsStudiedToday: stat.CardsStudied,
				DailyLimit:        -1,
				RemainingCards:    -1,
				IsLimitExceeded:   false,
				IsPremium:         true,
			}, nil
		}
		// Premium ran out: clear it lazily and fall through to the free tier
		notPremium := false
		user, err = us.usersRepo.Update(ctx, userID, &entity.UserUpdate{
			IsPremium:         &notPremium,
			ClearPremiumUntil: true,
		})
		if err != nil {
			return nil, errors.New("users repository error: " + err.Error())
		}
	}
	stat, err := us.statsRepo.GetDailyStats(ctx, userID, at)
	if err != nil {
		return nil, errors.New("stats repository error: " + err.Error())
	}
	limit := us.dailyLimit
	if user.DailyCardsLimit != nil && *user.DailyCardsLimit > 0 {
		limit = *user.DailyCardsLimit
	}
	remaining := limit - stat.CardsStudied
	if remaining < 0 {
		remaining = 0
	}
	return &entity.DailyLimitInfo{
		CardsStudiedToday: stat.CardsStudied,
		DailyLimit:        limit,
		RemainingCards:    remaining,
		IsLimitExceeded:   stat.CardsStudied >= limit,
		IsPremium:         false,
	}, nil
}

func (us *UserService) GrantPremium(ctx context.Context, userID int64, duration PremiumDuration) (*entity.User, error) {
	premium := true
	upd := entity.UserUpdate{IsPremium: &premium}
	switch duration {
	case PremiumDay:
		until := time.Now().UTC().AddDate(0, 0, 1)
		upd.PremiumUntil = &until
	case PremiumMonth:
		until := time.Now().UTC().AddDate(0, 1, 0)
		upd.PremiumUntil = &until
	case PremiumLifetime:
		upd.ClearPremiumUntil = true
	default:
		return nil, fmt.Errorf("%w: unknown premium duration %q", errorvalues.ErrValidation, duration)
	}
	user, err := us.usersRepo.Update(ctx, userID, &upd)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			return nil, err
		}
		return nil, errors.New("users repository error: " + err.Error())
	}
	return user, nil
}

func (us *UserService) UnlockToday(ctx context.Context, userID int64) (*entity.DailyLimitInfo, error) {
	now := time.Now().UTC()
	if err := us.statsRepo.ResetDailyCards(ctx, userID, now); err != nil {
		return nil, errors.New("stats repository error: " + err.Error())
	}
	return us.DailyLimitInfoFor(ctx, userID, now)
}

func (us *UserService) GetStats(ctx context.Context, userID int64) (*entity.UserStats, error) {
	stats, err := us.statsRepo.GetUserStats(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, errors.New("stats repository error: " + err.Error())
	}
	return stats, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func languageOrDefault(code string) string {
	if code == "" {
		return "en"
	}
	return code
}
