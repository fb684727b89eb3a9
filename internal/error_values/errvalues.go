package errorvalues

import (
	"errors"
	"fmt"

	"github.com/limbo/linguacards/pkg/entity"
)

var (
	ErrUserNotFound      = errors.New("user doesn't exist")
	ErrDeckNotFound      = errors.New("deck doesn't exist")
	ErrCardNotFound      = errors.New("card doesn't exist")
	ErrProgressNotFound  = errors.New("card was never studied")
	ErrNotSubscribed     = errors.New("user is not subscribed to this deck")
	ErrValidation        = errors.New("validation error")
	ErrDailyLimitReached = errors.New("daily card limit reached")
	ErrInvalidInitData   = errors.New("telegram init data is invalid")
	ErrExpiredInitData   = errors.New("telegram init data is too old")
)

// DailyLimitError signals that the daily quota was hit. It carries the quota
// state so the caller can render a paywall without another lookup. Matches
// ErrDailyLimitReached via errors.Is.
type DailyLimitError struct {
	Info *entity.DailyLimitInfo
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("daily card limit reached: %d of %d studied today", e.Info.CardsStudiedToday, e.Info.DailyLimit)
}

func (e *DailyLimitError) Is(target error) bool {
	return target == ErrDailyLimitReached
}
