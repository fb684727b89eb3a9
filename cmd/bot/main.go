package main

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/limbo/linguacards/pkg/config"
)

const welcomeText = "👋 Welcome to LinguaCards!\n\n" +
	"Learn words with flashcards right inside Telegram.\n" +
	"Tap the button below to open the app."

func main() {
	cfg := config.New()
	token := cfg.GetString("BOT_TOKEN")
	if token == "" {
		log.Fatal("BOT_TOKEN is required")
	}
	webAppURL := cfg.GetString("MINI_APP_URL")
	if webAppURL == "" {
		log.Fatal("MINI_APP_URL is required")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Fatal("bot api error: " + err.Error())
	}
	log.Printf("authorized on account: %s", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}
		chatID := update.Message.Chat.ID
		switch update.Message.Command() {
		case "start":
			sendWelcome(api, chatID, webAppURL)
		case "help":
			sendMessage(api, chatID, "Use /start to open LinguaCards.")
		default:
			sendMessage(api, chatID, "Unknown command. Use /start to open LinguaCards.")
		}
	}
}

func sendWelcome(api *tgbotapi.BotAPI, chatID int64, webAppURL string) {
	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.InlineKeyboardButton{
				Text:   "📚 Open LinguaCards",
				WebApp: &tgbotapi.WebAppInfo{URL: webAppURL},
			},
		),
	)
	if _, err := api.Send(msg); err != nil {
		log.Printf("error sending welcome message: %v", err)
	}
}

func sendMessage(api *tgbotapi.BotAPI, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := api.Send(msg); err != nil {
		log.Printf("error sending message: %v", err)
	}
}
