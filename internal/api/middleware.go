package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	errorvalues "github.com/limbo/linguacards/internal/error_values"
	"github.com/limbo/linguacards/pkg/entity"
	"github.com/limbo/linguacards/pkg/httputil"
	"github.com/limbo/linguacards/pkg/telegramauth"
)

var (
	requestIDKContextKey = "Request-ID"
	loggerContextKey     = "Logger"
	userContextKey       = "User"
)

func (s *Server) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New()
		ctx := context.WithValue(r.Context(), requestIDKContextKey, reqID.String())
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) SettingUpLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.Default()
		reqID, ok := r.Context().Value(requestIDKContextKey).(string)
		if ok && reqID != "" {
			logger = logger.With(slog.String("request_id", reqID))
		}
		logger = logger.With(slog.String("from", r.RemoteAddr))
		ctx := context.WithValue(r.Context(), loggerContextKey, logger)
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}

// TelegramAuthMiddleware verifies the signed initData on every request and
// resolves it to an internal user (created on first sight). Handlers below
// this middleware always find *entity.User in the context.
func (s *Server) TelegramAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := GetLoggerFromCtx(r.Context())
		initData, err := GetInitDataFromHeader(r)
		if err != nil {
			logger.Error("auth failed: missing init data")
			httputil.WriteErrorResponse(w, http.StatusUnauthorized, "authorization failed: missing init data", nil)
			return
		}
		tgUser, err := telegramauth.Validate(initData, s.botToken, initDataMaxAge)
		if err != nil {
			switch {
			case errors.Is(err, errorvalues.ErrExpiredInitData):
				logger.Error("auth failed: expired init data")
				httputil.WriteErrorResponse(w, http.StatusUnauthorized, "authorization failed: init data is too old", nil)
			default:
				logger.Error("auth failed: invalid init data")
				httputil.WriteErrorResponse(w, http.StatusUnauthorized, "authorization failed: invalid init data", nil)
			}
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), time.Second*5)
		defer cancel()
		user, err := s.userService.FindOrCreate(ctx, tgUser)
		if err != nil {
			logger.Error("auth failed: error resolving user", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error while resolving user", nil)
			return
		}
		logger = logger.With(slog.Int64("uid", user.ID))
		ctx = context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, loggerContextKey, logger)
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}

func GetLoggerFromCtx(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerContextKey).(*slog.Logger)
	if ok {
		return logger
	}
	return slog.Default()
}

// GetInitDataFromHeader expects "Authorization: tma <initData>" as the mini
// app convention.
func GetInitDataFromHeader(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errorvalues.ErrInvalidInitData
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "tma" || parts[1] == "" {
		return "", errorvalues.ErrInvalidInitData
	}
	return parts[1], nil
}

func GetUserFromContext(r *http.Request) (*entity.User, error) {
	user, ok := r.Context().Value(userContextKey).(*entity.User)
	if !ok || user == nil {
		return nil, errors.New("user invalid or doesn't exist in context")
	}
	return user, nil
}
