package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/limbo/linguacards/internal/service"
)

// initDataMaxAge bounds how old a signed Telegram payload may be.
const initDataMaxAge = 24 * time.Hour

type Server struct {
	mx           *chi.Mux
	userService  service.UserServiceI
	decksService service.DecksServiceI
	studyService service.StudyServiceI
	botToken     string
}

type ServicesList struct {
	UserService  service.UserServiceI
	DecksService service.DecksServiceI
	StudyService service.StudyServiceI
}

func New(servicesOptions *ServicesList, botToken string) *Server {
	return &Server{
		mx:           chi.NewMux(),
		userService:  servicesOptions.UserService,
		decksService: servicesOptions.DecksService,
		studyService: servicesOptions.StudyService,
		botToken:     botToken,
	}
}

func (s *Server) Run(address string) error {
	corsOptions := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	s.mx.Use(s.RequestIDMiddleware, s.SettingUpLoggerMiddleware, corsOptions.Handler)
	s.mx.Route("/api/v1", func(r chi.Router) {
		r.Use(s.TelegramAuthMiddleware)
		r.Get("/users/me", s.GetMe)
		r.Get("/users/me/limits", s.GetDailyLimit)
		r.Post("/users/me/limits/unlock", s.UnlockDailyLimit)
		r.Post("/users/me/premium", s.GrantPremium)
		r.Get("/decks", s.GetDecks)
		r.Get("/decks/my", s.GetMyDecks)
		r.Post("/decks/{id}/subscribe", s.SubscribeDeck)
		r.Delete("/decks/{id}/subscribe", s.UnsubscribeDeck)
		r.Get("/decks/{id}/study", s.GetStudyCards)
		r.Get("/study/all", s.GetAllStudyCards)
		r.Post("/progress/answer", s.SubmitAnswer)
		r.Get("/progress/stats", s.GetUserStats)
		r.Get("/progress/card/{cardId}", s.GetCardProgress)
	})
	return http.ListenAndServe(address, s.mx)
}
