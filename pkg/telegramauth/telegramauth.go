package telegramauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	errorvalues "github.com/limbo/linguacards/internal/error_values"
)

// TelegramUser is the user payload carried inside WebApp init data.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

// Validate checks the signature of Telegram WebApp initData against the bot
// token and returns the embedded user. A maxAge of zero disables the
// auth_date check.
// https://core.telegram.org/bots/webapps#validating-data-received-via-the-mini-app
func Validate(initData, botToken string, maxAge time.Duration) (*TelegramUser, error) {
	if initData == "" || botToken == "" {
		return nil, errorvalues.ErrInvalidInitData
	}
	params, err := url.ParseQuery(initData)
	if err != nil {
		return nil, errorvalues.ErrInvalidInitData
	}
	gotHash := params.Get("hash")
	if gotHash == "" {
		return nil, errorvalues.ErrInvalidInitData
	}
	params.Del("hash")

	pairs := make([]string, 0, len(params))
	for key := range params {
		pairs = append(pairs, key+"="+params.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	signer := hmac.New(sha256.New, secret.Sum(nil))
	signer.Write([]byte(strings.Join(pairs, "\n")))
	wantHash := hex.EncodeToString(signer.Sum(nil))
	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return nil, errorvalues.ErrInvalidInitData
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(params.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, errorvalues.ErrInvalidInitData
		}
		if time.Since(time.Unix(authDate, 0)) > maxAge {
			return nil, errorvalues.ErrExpiredInitData
		}
	}

	userJSON := params.Get("user")
	if userJSON == "" {
		return nil, errorvalues.ErrInvalidInitData
	}
	var user TelegramUser
	if err := sonic.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, errorvalues.ErrInvalidInitData
	}
	if user.ID == 0 {
		return nil, errorvalues.ErrInvalidInitData
	}
	return &user, nil
}
