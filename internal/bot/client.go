package bot

import (
	"context"
	"fmt"
	"net/http"

	"github.com/EgorMarkor/BotOpros/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client — исходящая сторона канала доставки. Реализует engine.Channel
// и service.DocumentSender. Все отправки проходят через общий лимитер,
// чтобы не упереться в ограничения Bot API.
type Client struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewClient(cfg config.TelegramConfig, log *zap.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: cfg.SendTimeout}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	return &Client{
		api: api,
		// ~25 сообщений в секунду, небольшой запас до лимита Bot API
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		log:     log,
	}, nil
}

func (c *Client) API() *tgbotapi.BotAPI {
	return c.api
}

func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	return c.api.Send(msg)
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.send(ctx, tgbotapi.NewMessage(chatID, text))
	return err
}

// SendRolePrompt — сообщение с inline-клавиатурой выбора роли.
func (c *Client) SendRolePrompt(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = roleKeyboard()
	_, err := c.send(ctx, msg)
	return err
}

func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := c.send(ctx, tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

// SendPoll отправляет неанонимный опрос и возвращает идентификатор
// живого опроса для сопоставления ответа.
func (c *Client) SendPoll(ctx context.Context, chatID int64, question string, options []string, multi bool) (string, error) {
	poll := tgbotapi.NewPoll(chatID, question, options...)
	poll.IsAnonymous = false
	poll.AllowsMultipleAnswers = multi

	sent, err := c.send(ctx, poll)
	if err != nil {
		return "", err
	}
	if sent.Poll == nil {
		return "", fmt.Errorf("telegram returned message without poll")
	}
	return sent.Poll.ID, nil
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	_, err := c.send(ctx, doc)
	return err
}

func roleKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👨‍👩‍👧 Я родитель", "role_parent"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎓 Я ученик", "role_student"),
		),
	)
}

// StopReceiving останавливает long polling; используется при остановке.
func (c *Client) StopReceiving() {
	c.api.StopReceivingUpdates()
}
