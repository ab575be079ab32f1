// Package telegram serves the chat and the résumé wizard over a Telegram
// bot, one conversation per chat.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxMessageLen stays under Telegram's 4096 character limit.
const maxMessageLen = 4000

// ErrNoToken is returned by Connect when no bot token is configured.
var ErrNoToken = errors.New("telegram bot token is not configured (TELEGRAM_BOT_TOKEN)")

// Bot is a long-polling Telegram client that sends Markdown replies.
type Bot struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
	mu  sync.Mutex
}

// Connect checks token against the Telegram API and returns a Bot for it.
func Connect(token string, log *zap.Logger) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNoToken
	}
	if log == nil {
		log = zap.NewNop()
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info("telegram bot authorized", zap.String("username", api.Self.UserName))
	return &Bot{api: api, log: log}, nil
}

// Username is the bot's handle without the @.
func (b *Bot) Username() string { return b.api.Self.UserName }

// Poll hands every chat update to handle until ctx is done.
func (b *Bot) Poll(ctx context.Context, handle func(Update)) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("telegram polling stopped")
			return
		case raw, ok := <-updates:
			if !ok {
				return
			}
			if u, ok := fromAPI(raw); ok {
				handle(u)
			}
		}
	}
}

// Send posts text to a chat, split to fit the size limit. Buttons go under
// the last part.
func (b *Bot) Send(chatID int64, text string, buttons [][]InlineButton) error {
	parts := splitText(text, maxMessageLen)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == len(parts)-1 && len(buttons) > 0 {
			msg.ReplyMarkup = keyboard(buttons)
		}
		if err := b.sendMarkdown(msg); err != nil {
			return err
		}
	}
	return nil
}

// sendMarkdown falls back to plain text when Telegram rejects the markup.
func (b *Bot) sendMarkdown(msg tgbotapi.MessageConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(msg)
	if err != nil && isParseError(err) {
		b.log.Debug("markdown rejected, sending plain", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		msg.ParseMode = ""
		_, err = b.api.Send(msg)
	}
	return err
}

// SendDocument uploads the file at path.
func (b *Bot) SendDocument(chatID int64, path, caption string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	_, err := b.api.Send(doc)
	return err
}

// Typing shows the typing indicator in a chat.
func (b *Bot) Typing(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.Debug("chat action failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// Ack stops the spinner on a pressed inline button.
func (b *Bot) Ack(callbackID string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		b.log.Debug("callback ack failed", zap.Error(err))
	}
}

// InlineButton is one button of an inline keyboard.
type InlineButton struct {
	Text string
	Data string
}

// Update is an incoming chat event: either a text message or a pressed
// inline button.
type Update struct {
	ChatID int64
	Text   string
	// CallbackID and Data are set for button presses.
	CallbackID string
	Data       string
}

// IsCallback reports whether the update is a button press.
func (u Update) IsCallback() bool { return u.CallbackID != "" }

// Command splits "/name@bot args" into its name and arguments; ok is false
// for plain text and button presses.
func (u Update) Command() (name, args string, ok bool) {
	if u.IsCallback() || !strings.HasPrefix(u.Text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(u.Text[1:], " ")
	name, _, _ = strings.Cut(head, "@")
	return strings.ToLower(name), strings.TrimSpace(rest), true
}

func fromAPI(raw tgbotapi.Update) (Update, bool) {
	switch {
	case raw.CallbackQuery != nil && raw.CallbackQuery.Message != nil:
		return Update{
			ChatID:     raw.CallbackQuery.Message.Chat.ID,
			CallbackID: raw.CallbackQuery.ID,
			Data:       raw.CallbackQuery.Data,
		}, true
	case raw.Message != nil && raw.Message.Chat != nil:
		return Update{ChatID: raw.Message.Chat.ID, Text: raw.Message.Text}, true
	}
	return Update{}, false
}

func keyboard(rows [][]InlineButton) tgbotapi.InlineKeyboardMarkup {
	markup := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		markup = append(markup, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(markup...)
}

// splitText cuts text into pieces of at most maxLen bytes, at a newline in
// the second half of the window when there is one, never inside a rune.
func splitText(text string, maxLen int) []string {
	var parts []string
	for len(text) > maxLen {
		cut := maxLen
		if nl := strings.LastIndexByte(text[:maxLen], '\n'); nl > maxLen/2 {
			cut = nl + 1
		}
		for cut > 1 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	return append(parts, text)
}

func isParseError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "can't parse")
}
