package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/EgorMarkor/BotOpros/internal/model"
	"github.com/EgorMarkor/BotOpros/pkg/monitoring"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// Тексты, которые видит респондент.
const (
	MsgWhoAreYou      = "Кто вы?"
	MsgIntro          = "Начинаем опрос 👇"
	MsgRoleSaved      = "Роль сохранена ✅\nНачинаем опрос 👇"
	MsgPickAgain      = "Хорошо, давай выберем заново 👇"
	MsgCompleted      = "Спасибо! Опрос завершён ✅"
	MsgScaleRange     = "Пожалуйста, введи число от 1 до 10"
	MsgSomethingWrong = "Что-то пошло не так, попробуй ещё раз 🙏"
)

const (
	scaleMin = 1
	scaleMax = 10
)

// UserStore, QuestionStore и AnswerStore — срез операций хранилища,
// который нужен движку. Реализуются репозиториями, в тестах — заглушками.
type UserStore interface {
	GetOrCreateByTgID(tgID int64) (*model.User, error)
	FindByTgID(tgID int64) (*model.User, error)
	UpdateRole(tgID int64, role model.Role) error
}

type QuestionStore interface {
	ListActiveByRole(role model.Role) ([]model.Question, error)
	// (nil, nil) — опрос не наш
	FindByPollID(pollID string) (*model.Question, error)
	SetPollID(questionID uint, pollID string) error
}

type AnswerStore interface {
	Create(a *model.Answer) error
}

// Channel — канал доставки: исходящие сообщения и опросы респонденту.
type Channel interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	// Приглашение выбрать роль с inline-клавиатурой
	SendRolePrompt(ctx context.Context, chatID int64, text string) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	// Возвращает идентификатор живого опроса
	SendPoll(ctx context.Context, chatID int64, question string, options []string, multi bool) (string, error)
}

// Engine — движок прохождения анкеты: решает, что респондент видит
// следующим, принимает и проверяет ответы, двигает состояние.
type Engine struct {
	users     UserStore
	questions QuestionStore
	answers   AnswerStore
	channel   Channel
	states    *StateTable
	log       *zap.Logger
}

func New(users UserStore, questions QuestionStore, answers AnswerStore, channel Channel, states *StateTable, log *zap.Logger) *Engine {
	return &Engine{
		users:     users,
		questions: questions,
		answers:   answers,
		channel:   channel,
		states:    states,
		log:       log,
	}
}

// Start обрабатывает /start: лениво заводит респондента; без роли —
// приглашение выбрать её, с ролью — анкета с начала.
func (e *Engine) Start(ctx context.Context, tgID int64) error {
	user, err := e.users.GetOrCreateByTgID(tgID)
	if err != nil {
		return fmt.Errorf("get or create respondent %d: %w", tgID, err)
	}

	if user.Role == "" {
		return e.channel.SendRolePrompt(ctx, tgID, MsgWhoAreYou)
	}

	st := e.states.Acquire(tgID)
	defer st.Release()
	st.Reset()

	if err := e.channel.SendMessage(ctx, tgID, MsgIntro); err != nil {
		return err
	}
	return e.dispatch(ctx, tgID, st)
}

// SetRole сохраняет выбранную роль, сбрасывает прохождение на начало и
// отправляет первый вопрос. messageID — сообщение с клавиатурой выбора,
// его текст редактируется.
func (e *Engine) SetRole(ctx context.Context, tgID int64, role model.Role, messageID int) error {
	if !model.ValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}

	if err := e.users.UpdateRole(tgID, role); err != nil {
		return fmt.Errorf("update role for %d: %w", tgID, err)
	}

	st := e.states.Acquire(tgID)
	defer st.Release()
	st.Reset()

	if err := e.channel.EditMessage(ctx, tgID, messageID, MsgRoleSaved); err != nil {
		return err
	}
	return e.dispatch(ctx, tgID, st)
}

// ResetRole обрабатывает /change_role: роль очищается, всё состояние
// прохождения удаляется, респонденту снова предлагают выбрать роль.
func (e *Engine) ResetRole(ctx context.Context, tgID int64) error {
	if err := e.users.UpdateRole(tgID, ""); err != nil {
		return fmt.Errorf("reset role for %d: %w", tgID, err)
	}

	e.states.Drop(tgID)

	return e.channel.SendRolePrompt(ctx, tgID, MsgPickAgain)
}

// Dispatch отправляет респонденту следующий применимый вопрос либо
// уведомление о завершении. Единственное место, решающее "что дальше".
func (e *Engine) Dispatch(ctx context.Context, tgID int64) error {
	st := e.states.Acquire(tgID)
	defer st.Release()
	return e.dispatch(ctx, tgID, st)
}

// dispatch предполагает, что состояние уже захвачено вызывающим.
func (e *Engine) dispatch(ctx context.Context, tgID int64, st *RespondentState) error {
	user, err := e.users.FindByTgID(tgID)
	if err != nil {
		return fmt.Errorf("resolve respondent %d: %w", tgID, err)
	}

	questions, err := e.questions.ListActiveByRole(user.Role)
	if err != nil {
		return fmt.Errorf("list questions for role %q: %w", user.Role, err)
	}

	if st.Index >= len(questions) {
		// Терминально и идемпотентно: состояние больше не меняется
		e.setMode(ctx, st, eventComplete)
		return e.channel.SendMessage(ctx, tgID, MsgCompleted)
	}

	q := questions[st.Index]
	e.setMode(ctx, st, eventAsk)
	monitoring.QuestionsDispatched.WithLabelValues(string(q.Type)).Inc()

	switch q.Type {
	case model.QuestionChoice, model.QuestionMultiChoice:
		pollID, err := e.channel.SendPoll(ctx, tgID, q.Text, q.OptionTexts(), q.Type == model.QuestionMultiChoice)
		if err != nil {
			return fmt.Errorf("send poll for question %d: %w", q.ID, err)
		}
		if err := e.questions.SetPollID(q.ID, pollID); err != nil {
			return fmt.Errorf("store poll id for question %d: %w", q.ID, err)
		}
		return nil

	case model.QuestionText:
		if err := e.channel.SendMessage(ctx, tgID, q.Text); err != nil {
			return err
		}
		st.AwaitingQuestionID = q.ID
		e.setMode(ctx, st, eventAwaitText)
		return nil

	case model.QuestionScaleGroup:
		if err := e.channel.SendMessage(ctx, tgID, q.Text); err != nil {
			return err
		}
		return e.beginScaleGroup(ctx, tgID, st, &q)

	default:
		e.log.Warn("question with unknown type skipped from dispatch",
			zap.Uint("question_id", q.ID),
			zap.String("type", string(q.Type)))
		return nil
	}
}

// beginScaleGroup инициализирует вложенный курсор и отправляет первое
// утверждение группы.
func (e *Engine) beginScaleGroup(ctx context.Context, tgID int64, st *RespondentState, q *model.Question) error {
	items := q.Options.Data()
	if len(items) == 0 {
		// Пустая группа считается пройденной
		st.Index++
		return e.dispatch(ctx, tgID, st)
	}

	st.Scale = &ScaleState{
		QuestionID: q.ID,
		Items:      items,
		Cursor:     0,
	}
	e.setMode(ctx, st, eventBeginScale)

	return e.channel.SendMessage(ctx, tgID, scalePrompt(items[0]))
}

// HandlePollAnswer — выбор вариантов в живом опросе. Несопоставимый
// poll id молча отбрасывается. Каждый выбранный вариант даёт отдельную
// запись ответа (multi_choice).
func (e *Engine) HandlePollAnswer(ctx context.Context, tgID int64, pollID string, optionIDs []int) error {
	st := e.states.Acquire(tgID)
	defer st.Release()

	user, err := e.users.FindByTgID(tgID)
	if err != nil {
		return fmt.Errorf("resolve respondent %d: %w", tgID, err)
	}

	q, err := e.questions.FindByPollID(pollID)
	if err != nil {
		return fmt.Errorf("match poll %s: %w", pollID, err)
	}
	if q == nil {
		// Устаревший или чужой опрос
		return nil
	}

	opts := q.Options.Data()
	for _, idx := range optionIDs {
		if idx < 0 || idx >= len(opts) {
			e.log.Warn("poll answer with option index out of range",
				zap.Uint("question_id", q.ID),
				zap.Int("option", idx))
			continue
		}
		answer := &model.Answer{
			UserID:     user.ID,
			QuestionID: q.ID,
			Answer:     opts[idx].Text,
		}
		if err := e.answers.Create(answer); err != nil {
			return fmt.Errorf("record answer for question %d: %w", q.ID, err)
		}
		monitoring.AnswersRecorded.WithLabelValues(string(q.Type)).Inc()
	}

	e.setMode(ctx, st, eventAnswered)
	st.Index++
	return e.dispatch(ctx, tgID, st)
}

// HandleText — свободный текст. Сначала проверяется шкала, потом
// ожидание открытого вопроса; вне обоих режимов текст игнорируется.
func (e *Engine) HandleText(ctx context.Context, tgID int64, text string) error {
	st := e.states.Acquire(tgID)
	defer st.Release()

	switch {
	case st.Mode() == StateScale && st.Scale != nil:
		return e.handleScaleReply(ctx, tgID, st, text)

	case st.Mode() == StateAwaitingText && st.AwaitingQuestionID != 0:
		return e.handleFreeTextReply(ctx, tgID, st, text)

	default:
		return nil
	}
}

func (e *Engine) handleScaleReply(ctx context.Context, tgID int64, st *RespondentState, text string) error {
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || value < scaleMin || value > scaleMax {
		// Неверный ввод: то же утверждение, курсор на месте, ничего не пишем
		return e.channel.SendMessage(ctx, tgID, MsgScaleRange)
	}

	user, err := e.users.FindByTgID(tgID)
	if err != nil {
		return fmt.Errorf("resolve respondent %d: %w", tgID, err)
	}

	item := st.Scale.Items[st.Scale.Cursor]
	answer := &model.Answer{
		UserID:     user.ID,
		QuestionID: st.Scale.QuestionID,
		Answer:     fmt.Sprintf("%s: %d", item.Key, value),
	}
	if err := e.answers.Create(answer); err != nil {
		return fmt.Errorf("record scale answer for question %d: %w", st.Scale.QuestionID, err)
	}
	monitoring.AnswersRecorded.WithLabelValues(string(model.QuestionScaleGroup)).Inc()

	st.Scale.Cursor++
	if st.Scale.Cursor < len(st.Scale.Items) {
		return e.channel.SendMessage(ctx, tgID, scalePrompt(st.Scale.Items[st.Scale.Cursor]))
	}

	// Все утверждения оценены — группа завершена, двигаем внешний индекс
	st.Scale = nil
	e.setMode(ctx, st, eventAnswered)
	st.Index++
	return e.dispatch(ctx, tgID, st)
}

func (e *Engine) handleFreeTextReply(ctx context.Context, tgID int64, st *RespondentState, text string) error {
	questionID := st.AwaitingQuestionID
	st.AwaitingQuestionID = 0

	user, err := e.users.FindByTgID(tgID)
	if err != nil {
		return fmt.Errorf("resolve respondent %d: %w", tgID, err)
	}

	// Текст сохраняется дословно, без числовой валидации
	answer := &model.Answer{
		UserID:     user.ID,
		QuestionID: questionID,
		Answer:     text,
	}
	if err := e.answers.Create(answer); err != nil {
		return fmt.Errorf("record text answer for question %d: %w", questionID, err)
	}
	monitoring.AnswersRecorded.WithLabelValues(string(model.QuestionText)).Inc()

	e.setMode(ctx, st, eventAnswered)
	st.Index++
	return e.dispatch(ctx, tgID, st)
}

func (e *Engine) setMode(ctx context.Context, st *RespondentState, event string) {
	if err := st.mode.Event(ctx, event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			e.log.Warn("mode transition rejected",
				zap.String("event", event),
				zap.String("mode", st.Mode()),
				zap.Error(err))
		}
	}
}

func scalePrompt(item model.Option) string {
	return fmt.Sprintf("%s) %s\n\nОцени от 1 до 10", item.Key, item.Text)
}
