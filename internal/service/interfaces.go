package service

import (
	"context"
	"time"

	"github.com/limbo/linguacards/pkg/entity"
	"github.com/limbo/linguacards/pkg/telegramauth"
)

// Answer and direction values the mini app may submit.
const (
	AnswerKnow     = "know"
	AnswerDontKnow = "dont_know"

	DirectionFrontBack = "front-back"
	DirectionBackFront = "back-front"
)

type PremiumDuration string

const (
	PremiumDay      PremiumDuration = "day"
	PremiumMonth    PremiumDuration = "month"
	PremiumLifetime PremiumDuration = "lifetime"
)

type SubmitAnswerRequest struct {
	CardID    int64  `validate:"required,gt=0"`
	Answer    string `validate:"required,oneof=know dont_know"`
	Direction string `validate:"required,study_direction"`
}

// SubmitAnswerResult pairs the rewritten progress row with the quota state
// recomputed after the answer, so the caller can show the remaining budget.
type SubmitAnswerResult struct {
	Progress  *entity.UserProgress   `json:"progress"`
	LimitInfo *entity.DailyLimitInfo `json:"limit_info"`
}

type StudySet struct {
	Cards []*entity.StudyCard `json:"cards"`
	Stats *entity.StudyStats  `json:"stats"`
}

type UserServiceI interface {
	// Creates the user on first authentication, refreshes display fields on
	// every later one
	FindOrCreate(ctx context.Context, tgUser *telegramauth.TelegramUser) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	// Quota state for the current UTC day
	GetDailyLimitInfo(ctx context.Context, userID int64) (*entity.DailyLimitInfo, error)
	// Quota state for the day containing at. Lazily clears an expired
	// premium flag as a side effect
	DailyLimitInfoFor(ctx context.Context, userID int64, at time.Time) (*entity.DailyLimitInfo, error)
	GrantPremium(ctx context.Context, userID int64, duration PremiumDuration) (*entity.User, error)
	// Zeroes today's studied counter after a limit-unlock purchase
	UnlockToday(ctx context.Context, userID int64) (*entity.DailyLimitInfo, error)
	GetStats(ctx context.Context, userID int64) (*entity.UserStats, error)
}

type DecksServiceI interface {
	GetDecks(ctx context.Context, userID int64) ([]*entity.DeckWithProgress, error)
	GetUserDecks(ctx context.Context, userID int64) ([]*entity.DeckWithProgress, error)
	Subscribe(ctx context.Context, userID, deckID int64) (*entity.UserDeck, error)
	Unsubscribe(ctx context.Context, userID, deckID int64) error
}

type StudyServiceI interface {
	// Study set for one deck; stats always cover the full population even
	// when limit truncates the card list
	GetStudyCards(ctx context.Context, deckID, userID int64, limit int) (*StudySet, error)
	// Study set across all active subscriptions
	GetAllStudyCards(ctx context.Context, userID int64, limit int) (*StudySet, error)
	// Validates, enforces the daily quota, records the answer atomically
	SubmitAnswer(ctx context.Context, userID int64, req *SubmitAnswerRequest) (*SubmitAnswerResult, error)
	GetCardProgress(ctx context.Context, userID, cardID int64) (*entity.UserProgress, error)
}
