package entity

import "time"

type CardStatus string

const (
	StatusNew    CardStatus = "new"
	StatusRepeat CardStatus = "repeat"
	StatusKnown  CardStatus = "known"
)

// KnownAccuracyThreshold is the accuracy percentage from which a card with at
// least one correct answer counts as known.
const KnownAccuracyThreshold = 80.0

type User struct {
	ID              int64      `json:"id"`
	TelegramID      int64      `json:"telegram_id"`
	Username        *string    `json:"username,omitempty"`
	FirstName       *string    `json:"first_name,omitempty"`
	LastName        *string    `json:"last_name,omitempty"`
	LanguageCode    string     `json:"language_code"`
	IsPremium       bool       `json:"is_premium"`
	PremiumUntil    *time.Time `json:"premium_until,omitempty"`
	DailyCardsLimit *int       `json:"daily_cards_limit,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UserUpdate lists the user columns that can change after creation. Nil
// fields are left untouched. ClearPremiumUntil sets premium_until to NULL and
// takes precedence over PremiumUntil.
type UserUpdate struct {
	Username          *string
	FirstName         *string
	LastName          *string
	LanguageCode      *string
	IsPremium         *bool
	PremiumUntil      *time.Time
	ClearPremiumUntil bool
	DailyCardsLimit   *int
}

type Deck struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Emoji       string    `json:"emoji"`
	CardsCount  int       `json:"cards_count"`
	IsPublic    bool      `json:"is_public"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

type DeckWithProgress struct {
	Deck
	IsSubscribed       bool    `json:"is_subscribed"`
	ProgressPercentage float64 `json:"progress_percentage"`
	TotalCardsStudied  int     `json:"total_cards_studied"`
	CardsKnown         int     `json:"cards_known"`
	CardsRepeat        int     `json:"cards_repeat"`
	CardsNew           int     `json:"cards_new"`
}

type Card struct {
	ID           int64  `json:"id"`
	DeckID       int64  `json:"deck_id"`
	FrontText    string `json:"front_text"`
	BackText     string `json:"back_text"`
	FrontExample string `json:"front_example,omitempty"`
	BackExample  string `json:"back_example,omitempty"`
	SortOrder    int    `json:"sort_order"`
}

// StudyCard is a card joined with the caller's progress. A card never
// answered carries the zero progress defaults and status "new".
type StudyCard struct {
	Card
	DeckTitle      string     `json:"deck_title,omitempty"`
	DeckEmoji      string     `json:"deck_emoji,omitempty"`
	Status         CardStatus `json:"status"`
	Repetitions    int        `json:"repetitions"`
	CorrectAnswers int        `json:"correct_answers"`
	WrongAnswers   int        `json:"wrong_answers"`
	CurrentStreak  int        `json:"current_streak"`
	LastStudiedAt  *time.Time `json:"last_studied_at,omitempty"`
}

type UserDeck struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	DeckID             int64      `json:"deck_id"`
	IsActive           bool       `json:"is_active"`
	ProgressPercentage float64    `json:"progress_percentage"`
	TotalCardsStudied  int        `json:"total_cards_studied"`
	StartedAt          time.Time  `json:"started_at"`
	LastStudiedAt      *time.Time `json:"last_studied_at,omitempty"`
}

type UserProgress struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	CardID             int64      `json:"card_id"`
	Status             CardStatus `json:"status"`
	Repetitions        int        `json:"repetitions"`
	CorrectAnswers     int        `json:"correct_answers"`
	WrongAnswers       int        `json:"wrong_answers"`
	CurrentStreak      int        `json:"current_streak"`
	BestStreak         int        `json:"best_streak"`
	AccuracyPercentage float64    `json:"accuracy_percentage"`
	LastStudiedAt      *time.Time `json:"last_studied_at,omitempty"`
}

type DailyStat struct {
	CardsStudied   int `json:"cards_studied"`
	CorrectAnswers int `json:"correct_answers"`
	WrongAnswers   int `json:"wrong_answers"`
}

type DailyLimitInfo struct {
	CardsStudiedToday int  `json:"cards_studied_today"`
	DailyLimit        int  `json:"daily_limit"`
	RemainingCards    int  `json:"remaining_cards"`
	IsLimitExceeded   bool `json:"is_limit_exceeded"`
	IsPremium         bool `json:"is_premium"`
}

type StudyStats struct {
	Total  int `json:"total"`
	New    int `json:"new"`
	Repeat int `json:"repeat"`
	Known  int `json:"known"`
}

type UserStats struct {
	TotalStudied int       `json:"total_studied"`
	CardsKnown   int       `json:"cards_known"`
	CardsRepeat  int       `json:"cards_repeat"`
	CardsNew     int       `json:"cards_new"`
	AvgAccuracy  float64   `json:"avg_accuracy"`
	Today        DailyStat `json:"today"`
}

// StatusFor derives the card status from the running accuracy. A card with no
// correct answers stays new no matter how many attempts were made.
func StatusFor(accuracy float64, correctAnswers int) CardStatus {
	if correctAnswers == 0 {
		return StatusNew
	}
	if accuracy >= KnownAccuracyThreshold {
		return StatusKnown
	}
	return StatusRepeat
}

// NewProgress builds the progress row for the first answer on a card.
func NewProgress(userID, cardID int64, correct bool, now time.Time) *UserProgress {
	p := &UserProgress{
		UserID:      userID,
		CardID:      cardID,
		Repetitions: 1,
	}
	if correct {
		p.CorrectAnswers = 1
		p.CurrentStreak = 1
		p.BestStreak = 1
		p.AccuracyPercentage = 100
	} else {
		p.WrongAnswers = 1
	}
	p.Status = StatusFor(p.AccuracyPercentage, p.CorrectAnswers)
	p.LastStudiedAt = &now
	return p
}

// ApplyAnswer folds one answer into an existing progress row. The current
// streak resets on any wrong answer, the best streak never decreases.
func (p *UserProgress) ApplyAnswer(correct bool, now time.Time) {
	p.Repetitions++
	if correct {
		p.CorrectAnswers++
		p.CurrentStreak++
	} else {
		p.WrongAnswers++
		p.CurrentStreak = 0
	}
	if p.CurrentStreak > p.BestStreak {
		p.BestStreak = p.CurrentStreak
	}
	p.AccuracyPercentage = float64(p.CorrectAnswers) / float64(p.Repetitions) * 100
	p.Status = StatusFor(p.AccuracyPercentage, p.CorrectAnswers)
	p.LastStudiedAt = &now
}
