package bot

import (
	"context"
	"strings"

	"github.com/EgorMarkor/BotOpros/internal/engine"
	"github.com/EgorMarkor/BotOpros/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot принимает обновления Telegram и маршрутизирует их в движок анкеты.
// Обновления обрабатываются по одному, порядок внутри чата сохраняется.
type Bot struct {
	client *Client
	engine *engine.Engine
	log    *zap.Logger
}

func New(client *Client, eng *engine.Engine, log *zap.Logger) *Bot {
	return &Bot{
		client: client,
		engine: eng,
		log:    log,
	}
}

// Run крутит long polling до отмены контекста.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query", "poll_answer"}

	updates := b.client.API().GetUpdatesChan(u)
	b.log.Info("telegram bot started", zap.String("username", b.client.API().Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceiving()
			b.log.Info("telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.PollAnswer != nil:
		pa := update.PollAnswer
		if err := b.engine.HandlePollAnswer(ctx, pa.User.ID, pa.PollID, pa.OptionIDs); err != nil {
			b.fail(ctx, pa.User.ID, "poll answer", err)
		}

	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)

	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Снимаем «часики» на кнопке в любом случае
	defer func() {
		if _, err := b.client.API().Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			b.log.Warn("callback ack failed", zap.Error(err))
		}
	}()

	if !strings.HasPrefix(cq.Data, "role_") || cq.Message == nil {
		return
	}

	role := model.Role(strings.TrimPrefix(cq.Data, "role_"))
	if err := b.engine.SetRole(ctx, cq.From.ID, role, cq.Message.MessageID); err != nil {
		b.fail(ctx, cq.From.ID, "role selection", err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil {
		return
	}

	switch {
	case m.IsCommand() && m.Command() == "start":
		if err := b.engine.Start(ctx, m.From.ID); err != nil {
			b.fail(ctx, m.From.ID, "start", err)
		}

	case m.IsCommand() && m.Command() == "change_role":
		if err := b.engine.ResetRole(ctx, m.From.ID); err != nil {
			b.fail(ctx, m.From.ID, "change role", err)
		}

	case m.IsCommand():
		// Незнакомые команды игнорируются

	case m.Text != "":
		if err := b.engine.HandleText(ctx, m.From.ID, m.Text); err != nil {
			b.fail(ctx, m.From.ID, "text answer", err)
		}
	}
}

// fail логирует ошибку обработчика и показывает респонденту общее
// извинение. Сбой одного респондента не роняет процесс и не трогает
// остальных.
func (b *Bot) fail(ctx context.Context, tgID int64, op string, err error) {
	b.log.Error("handler failed",
		zap.String("op", op),
		zap.Int64("tg_id", tgID),
		zap.Error(err))

	if sendErr := b.client.SendMessage(ctx, tgID, engine.MsgSomethingWrong); sendErr != nil {
		b.log.Warn("apology delivery failed", zap.Int64("tg_id", tgID), zap.Error(sendErr))
	}
}
