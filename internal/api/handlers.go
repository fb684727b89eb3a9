package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/internal/service"
	"github.com/limbo/linguacards/pkg/entity"
	"github.com/limbo/linguacards/pkg/httputil"
)

type SubmitAnswerRequest struct {
	CardID    int64  `json:"card_id"`
	Answer    string `json:"answer"`
	Direction string `json:"direction"`
}

type GrantPremiumRequest struct {
	Duration string `json:"duration"`
}

type MeResponse struct {
	User      *entity.User           `json:"user"`
	LimitInfo *entity.DailyLimitInfo `json:"limit_info"`
}

func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("get me error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*10)
	defer cancel()
	limitInfo, err := s.userService.GetDailyLimitInfo(ctx, user.ID)
	if err != nil {
		logger.Error("get me error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error while resolving limits", nil)
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, MeResponse{
		User:      user,
		LimitInfo: limitInfo,
	})
	logger.Info("user info provided")
}

func (s *Server) GetDailyLimit(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("get daily limit error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*10)
	defer cancel()
	limitInfo, err := s.userService.GetDailyLimitInfo(ctx, user.ID)
	if err != nil {
		logger.Error("get daily limit error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error while resolving limits", nil)
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, limitInfo)
	logger.Info("daily limit provided")
}

func (s *Server) UnlockDailyLimit(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("unlock daily limit error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*10)
	defer cancel()
	limitInfo, err := s.userService.UnlockToday(ctx, user.ID)
	if err != nil {
		logger.Error("unlock daily limit error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error while unlocking limit", nil)
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, limitInfo)
	logger.Info("daily limit unlocked")
}

func (s *Server) GrantPremium(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("grant premium error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	var req GrantPremiumRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("grant premium error: invalid request body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*10)
	defer cancel()
	updated, err := s.userService.GrantPremium(ctx, user.ID, service.PremiumDuration(req.Duration))
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrValidation):
			logger.Error("grant premium error: unknown duration")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "unknown premium duration", nil)
		case errors.Is(err, errorvalues.ErrUserNotFound):
			logger.Error("grant premium error: unexist user")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "user doesn't exist", nil)
		default:
			logger.Error("grant premium error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error while granting premium", nil)
		}
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, updated)
	logger.Info("premium granted")
}

func (s *Server) GetDecks(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("get decks error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*15)
	defer cancel()
	decks, err := s.decksService.GetDecks(ctx, user.ID)
	if err != nil {
		logger.Error("getting decks list error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error while getting decks list", nil)
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, decks)
	logger.Info("decks provided")
}

func (s *Server) GetMyDecks(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("get my decks error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*15)
	defer cancel()
	decks, err := s.decksService.GetUserDecks(ctx, user.ID)
	if err != nil {
		logger.Error("getting subscribed decks error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error while getting subscribed decks", nil)
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, decks)
	logger.Info("subscribed decks provided")
}

func (s *Server) SubscribeDeck(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("subscribe error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	deckID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		logger.Error("subscribe error: invalid deck id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid deck id in path value", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*10)
	defer cancel()
	userDeck, err := s.decksService.Subscribe(ctx, user.ID, deckID)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrDeckNotFound):
			logger.Error("subscribe error: unexist deck")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "deck doesn't exist", nil)
		default:
			logger.Error("subscribe error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error while subscribing", nil)
		}
		return
	}
	httputil.WriteDataResponse(w, http.StatusCreated, userDeck)
	logger.Info("subscribed to deck")
}

func (s *Server) UnsubscribeDeck(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("unsubscribe error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	deckID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		logger.Error("unsubscribe error: invalid deck id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid deck id in path value", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*10)
	defer cancel()
	err = s.decksService.Unsubscribe(ctx, user.ID, deckID)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrNotSubscribed):
			logger.Error("unsubscribe error: user was not subscribed")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "subscription doesn't exist", nil)
		default:
			logger.Error("unsubscribe error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error while unsubscribing", nil)
		}
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, nil)
	logger.Info("unsubscribed from deck")
}

func (s *Server) GetStudyCards(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("get study cards error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	deckID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		logger.Error("get study cards error: invalid deck id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid deck id in path value", nil)
		return
	}
	limit := parseLimit(r)
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*15)
	defer cancel()
	set, err := s.studyService.GetStudyCards(ctx, deckID, user.ID, limit)
	if err != nil {
		logger.Error("getting study cards error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error while getting study cards", nil)
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, set)
	logger.Info("study cards provided")
}

func (s *Server) GetAllStudyCards(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("get all study cards error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	limit := parseLimit(r)
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*15)
	defer cancel()
	set, err := s.studyService.GetAllStudyCards(ctx, user.ID, limit)
	if err != nil {
		logger.Error("getting all study cards error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error while getting study cards", nil)
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, set)
	logger.Info("study cards provided")
}

func (s *Server) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("submit answer error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	var req SubmitAnswerRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("submit answer error: invalid request body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*10)
	defer cancel()
	result, err := s.studyService.SubmitAnswer(ctx, user.ID, &service.SubmitAnswerRequest{
		CardID:    req.CardID,
		Answer:    req.Answer,
		Direction: req.Direction,
	})
	if err != nil {
		var limitErr *errorvalues.DailyLimitError
		switch {
		case errors.As(err, &limitErr):
			logger.Error("submit answer error: daily limit reached")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "daily card limit reached", limitErr.Info)
		case errors.Is(err, errorvalues.ErrValidation):
			logger.Error("submit answer error: invalid answer payload")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid answer or direction", nil)
		case errors.Is(err, errorvalues.ErrCardNotFound):
			logger.Error("submit answer error: unexist card")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "card doesn't exist", nil)
		case errors.Is(err, errorvalues.ErrUserNotFound):
			logger.Error("submit answer error: unexist user")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "user doesn't exist", nil)
		default:
			logger.Error("submit answer error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error while submitting answer", nil)
		}
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, result)
	logger.Info("answer recorded")
}

func (s *Server) GetUserStats(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("get stats error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*10)
	defer cancel()
	stats, err := s.userService.GetStats(ctx, user.ID)
	if err != nil {
		logger.Error("getting user stats error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error while getting stats", nil)
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, stats)
	logger.Info("user stats provided")
}

func (s *Server) GetCardProgress(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	user, err := GetUserFromContext(r)
	if err != nil {
		logger.Error("get card progress error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	cardID, err := strconv.ParseInt(r.PathValue("cardId"), 10, 64)
	if err != nil {
		logger.Error("get card progress error: invalid card id in path value")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid card id in path value", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Second*10)
	defer cancel()
	progress, err := s.studyService.GetCardProgress(ctx, user.ID, cardID)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrProgressNotFound):
			logger.Error("get card progress error: card was never studied")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "card was never studied", nil)
		default:
			logger.Error("get card progress error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error while getting card progress", nil)
		}
		return
	}
	httputil.WriteDataResponse(w, http.StatusOK, progress)
	logger.Info("card progress provided")
}

// parseLimit reads the optional limit query param; 0 means no truncation.
func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		return 0
	}
	return limit
}
