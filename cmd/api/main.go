// @title LinguaCards API
// @description Backend for the "LinguaCards" Telegram mini app
// @BasePath /api/v1
// @schemes http
package main

import (
	"context"
	"log"

	"github.com/limbo/linguacards/internal/api"
	"github.com/limbo/linguacards/internal/repository"
	"github.com/limbo/linguacards/internal/service"
	"github.com/limbo/linguacards/pkg/cleanup"
	"github.com/limbo/linguacards/pkg/config"
)

func init() {
	service.InitValidator()
}

func main() {
	defer cleanup.CleanUp()
	cfg := config.New()
	dbCfg := repository.PGCfg{
		Address:  cfg.GetString("POSTGRES_DB_ADDRESS"),
		Username: cfg.GetString("POSTGRES_USER"),
		Password: cfg.GetString("POSTGRES_PASSWORD"),
		DB:       cfg.GetString("POSTGRES_DB"),
	}
	pool, err := repository.NewPool(context.Background(), &dbCfg)
	if err != nil {
		log.Fatal("database connection error: " + err.Error())
	}
	usersRepo := repository.NewUsersRepo(pool)
	decksRepo := repository.NewDecksRepo(pool)
	cardsRepo := repository.NewCardsRepo(pool)
	progressRepo := repository.NewProgressRepo(pool)

	userService := service.NewUserService(usersRepo, progressRepo, cfg.GetInt("DAILY_CARDS_LIMIT"))
	decksService := service.NewDecksService(decksRepo)
	studyService := service.NewStudyService(cardsRepo, progressRepo, userService)

	serv := api.New(&api.ServicesList{
		UserService:  userService,
		DecksService: decksService,
		StudyService: studyService,
	}, cfg.GetString("BOT_TOKEN"))
	err = serv.Run(cfg.GetString("API_ADDRESS"))
	if err != nil {
		log.Println("Server error: " + err.Error())
	}
}
