package service

import (
	"context"
	"errors"
	"log"

	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/internal/repository"
	"github.com/limbo/linguacards/pkg/entity"
)

type DecksService struct {
	repo repository.DecksRepositoryI
}

func NewDecksService(decksRepo repository.DecksRepositoryI) *DecksService {
	if decksRepo == nil {
		log.Fatal("provided nil decksRepo")
	}
	return &DecksService{
		repo: decksRepo,
	}
}

func (ds *DecksService) GetDecks(ctx context.Context, userID int64) ([]*entity.DeckWithProgress, error) {
	decks, err := ds.repo.GetPublicDecks(ctx, userID)
	if err != nil {
		return nil, errors.New("decks repository error: " + err.Error())
	}
	return decks, nil
}

func (ds *DecksService) GetUserDecks(ctx context.Context, userID int64) ([]*entity.DeckWithProgress, error) {
	decks, err := ds.repo.GetUserDecks(ctx, userID)
	if err != nil {
		return nil, errors.New("decks repository error: " + err.Error())
	}
	return decks, nil
}

func (ds *DecksService) Subscribe(ctx context.Context, userID, deckID int64) (*entity.UserDeck, error) {
	_, err := ds.repo.GetByID(ctx, deckID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrDeckNotFound) {
			return nil, err
		}
		return nil, errors.New("decks repository error: " + err.Error())
	}
	userDeck, err := ds.repo.Subscribe(ctx, userID, deckID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrDeckNotFound) {
			return nil, err
		}
		return nil, errors.New("decks repository error: " + err.Error())
	}
	return userDeck, nil
}

func (ds *DecksService) Unsubscribe(ctx context.Context, userID, deckID int64) error {
	affected, err := ds.repo.Unsubscribe(ctx, userID, deckID)
	if err != nil {
		return errors.New("decks repository error: " + err.Error())
	}
	if !affected {
		return errorvalues.ErrNotSubscribed
	}
	return nil
}
