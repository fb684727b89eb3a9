package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/internal/repository"
	"github.com/limbo/linguacards/pkg/entity"
)

type StudyService struct {
	cardsRepo    repository.CardsRepositoryI
	progressRepo repository.ProgressRepositoryI
	users        UserServiceI
}

func NewStudyService(cardsRepo repository.CardsRepositoryI, progressRepo repository.ProgressRepositoryI, users UserServiceI) *StudyService {
	if cardsRepo == nil || progressRepo == nil || users == nil {
		log.Fatal("on study service provided nil dependencies")
	}
	return &StudyService{
		cardsRepo:    cardsRepo,
		progressRepo: progressRepo,
		users:        users,
	}
}

func (ss *StudyService) GetStudyCards(ctx context.Context, deckID, userID int64, limit int) (*StudySet, error) {
	cards, err := ss.cardsRepo.GetForStudy(ctx, deckID, userID, limit)
	if err != nil {
		return nil, errors.New("cards repository error: " + err.Error())
	}
	// Stats count the whole deck, not the truncated session
	stats, err := ss.cardsRepo.GetDeckStudyStats(ctx, deckID, userID)
	if err != nil {
		return nil, errors.New("cards repository error: " + err.Error())
	}
	return &StudySet{
		Cards: cards,
		Stats: stats,
	}, nil
}

func (ss *StudyService) GetAllStudyCards(ctx context.Context, userID int64, limit int) (*StudySet, error) {
	cards, err := ss.cardsRepo.GetAllForStudy(ctx, userID, limit)
	if err != nil {
		return nil, errors.New("cards repository error: " + err.Error())
	}
	stats, err := ss.cardsRepo.GetAllDecksStudyStats(ctx, userID)
	if err != nil {
		return nil, errors.New("cards repository error: " + err.Error())
	}
	return &StudySet{
		Cards: cards,
		Stats: stats,
	}, nil
}

// SubmitAnswer validates the request, refuses unknown cards and exhausted
// quotas before anything is written, then records the answer in one
// transaction and reports the refreshed quota. Both quota reads use the same
// instant so a request spanning midnight sees one day.
func (ss *StudyService) SubmitAnswer(ctx context.Context, userID int64, req *SubmitAnswerRequest) (*SubmitAnswerResult, error) {
	if err := validate.Struct(*req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			err = errorvalues.ErrValidation
			for _, fieldErr := range validationErrors {
				err = errors.Join(err, fieldErr)
			}
			return nil, err
		}
		return nil, errors.New("validation unexpected error: " + err.Error())
	}

	card, err := ss.cardsRepo.GetByID(ctx, req.CardID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrCardNotFound) {
			return nil, err
		}
		return nil, errors.New("cards repository error: " + err.Error())
	}

	now := time.Now().UTC()
	limitInfo, err := ss.users.DailyLimitInfoFor(ctx, userID, now)
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolving daily limit error: %w", err)
	}
	if limitInfo.IsLimitExceeded {
		return nil, &errorvalues.DailyLimitError{Info: limitInfo}
	}

	progress, err := ss.progressRepo.RecordAnswer(ctx, userID, card.ID, card.DeckID, req.Answer == AnswerKnow, now)
	if err != nil {
		return nil, errors.New("progress repository error: " + err.Error())
	}

	updatedInfo, err := ss.users.DailyLimitInfoFor(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("resolving daily limit error: %w", err)
	}
	return &SubmitAnswerResult{
		Progress:  progress,
		LimitInfo: updatedInfo,
	}, nil
}

func (ss *StudyService) GetCardProgress(ctx context.Context, userID, cardID int64) (*entity.UserProgress, error) {
	progress, err := ss.progressRepo.GetByUserAndCard(ctx, userID, cardID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrProgressNotFound) {
			return nil, err
		}
		return nil, errors.New("progress repository error: " + err.Error())
	}
	return progress, nil
}
