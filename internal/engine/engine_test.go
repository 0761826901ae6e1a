package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/EgorMarkor/BotOpros/internal/model"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type stubUsers struct {
	users  map[int64]*model.User
	nextID uint
}

func newStubUsers() *stubUsers {
	return &stubUsers{users: make(map[int64]*model.User), nextID: 1}
}

func (s *stubUsers) GetOrCreateByTgID(tgID int64) (*model.User, error) {
	if u, ok := s.users[tgID]; ok {
		return u, nil
	}
	u := &model.User{BaseModel: model.BaseModel{ID: s.nextID}, TgID: tgID}
	s.nextID++
	s.users[tgID] = u
	return u, nil
}

func (s *stubUsers) FindByTgID(tgID int64) (*model.User, error) {
	if u, ok := s.users[tgID]; ok {
		return u, nil
	}
	return nil, nil
}

func (s *stubUsers) UpdateRole(tgID int64, role model.Role) error {
	u, ok := s.users[tgID]
	if !ok {
		return fmt.Errorf("no user %d", tgID)
	}
	u.Role = role
	return nil
}

type stubQuestions struct {
	byRole map[model.Role][]*model.Question
}

func newStubQuestions(questions ...*model.Question) *stubQuestions {
	s := &stubQuestions{byRole: make(map[model.Role][]*model.Question)}
	for _, q := range questions {
		s.byRole[q.Role] = append(s.byRole[q.Role], q)
	}
	return s
}

func (s *stubQuestions) ListActiveByRole(role model.Role) ([]model.Question, error) {
	var out []model.Question
	for _, q := range s.byRole[role] {
		out = append(out, *q)
	}
	return out, nil
}

func (s *stubQuestions) FindByPollID(pollID string) (*model.Question, error) {
	for _, list := range s.byRole {
		for _, q := range list {
			if q.TelegramPollID == pollID {
				return q, nil
			}
		}
	}
	return nil, nil
}

func (s *stubQuestions) SetPollID(questionID uint, pollID string) error {
	for _, list := range s.byRole {
		for _, q := range list {
			if q.ID == questionID {
				q.TelegramPollID = pollID
				return nil
			}
		}
	}
	return fmt.Errorf("no question %d", questionID)
}

type stubAnswers struct {
	created []model.Answer
}

func (s *stubAnswers) Create(a *model.Answer) error {
	s.created = append(s.created, *a)
	return nil
}

type sentPoll struct {
	question string
	options  []string
	multi    bool
	pollID   string
}

type stubChannel struct {
	messages    []string
	rolePrompts []string
	edits       []string
	polls       []sentPoll
	nextPoll    int
}

func (c *stubChannel) SendMessage(_ context.Context, _ int64, text string) error {
	c.messages = append(c.messages, text)
	return nil
}

func (c *stubChannel) SendRolePrompt(_ context.Context, _ int64, text string) error {
	c.rolePrompts = append(c.rolePrompts, text)
	return nil
}

func (c *stubChannel) EditMessage(_ context.Context, _ int64, _ int, text string) error {
	c.edits = append(c.edits, text)
	return nil
}

func (c *stubChannel) SendPoll(_ context.Context, _ int64, question string, options []string, multi bool) (string, error) {
	c.nextPoll++
	id := fmt.Sprintf("poll-%d", c.nextPoll)
	c.polls = append(c.polls, sentPoll{question: question, options: options, multi: multi, pollID: id})
	return id, nil
}

func choiceQuestion(id uint, role model.Role, text string, options ...string) *model.Question {
	opts := make([]model.Option, len(options))
	for i, o := range options {
		opts[i] = model.Option{Text: o}
	}
	return &model.Question{
		BaseModel: model.BaseModel{ID: id},
		Role:      role,
		Text:      text,
		Type:      model.QuestionChoice,
		Options:   datatypes.NewJSONType(opts),
		IsActive:  true,
	}
}

func newTestEngine(users *stubUsers, questions *stubQuestions, answers *stubAnswers, channel *stubChannel) *Engine {
	return New(users, questions, answers, channel, NewStateTable(), zap.NewNop())
}

func lastMessage(t *testing.T, c *stubChannel) string {
	t.Helper()
	if len(c.messages) == 0 {
		t.Fatal("expected at least one message")
	}
	return c.messages[len(c.messages)-1]
}

func TestStartWithoutRoleAsksForRole(t *testing.T) {
	users := newStubUsers()
	channel := &stubChannel{}
	eng := newTestEngine(users, newStubQuestions(), &stubAnswers{}, channel)

	if err := eng.Start(context.Background(), 100); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if len(channel.rolePrompts) != 1 || channel.rolePrompts[0] != MsgWhoAreYou {
		t.Fatalf("expected role prompt %q, got %v", MsgWhoAreYou, channel.rolePrompts)
	}
	if len(channel.messages) != 0 {
		t.Fatalf("no questionnaire messages expected before role is set, got %v", channel.messages)
	}
	if _, ok := users.users[100]; !ok {
		t.Fatal("respondent should be created lazily on /start")
	}
}

func TestSetRoleStartsQuestionnaire(t *testing.T) {
	users := newStubUsers()
	users.GetOrCreateByTgID(100)
	questions := newStubQuestions(choiceQuestion(1, model.RoleParent, "Вопрос 1", "Да", "Нет"))
	channel := &stubChannel{}
	eng := newTestEngine(users, questions, &stubAnswers{}, channel)

	if err := eng.SetRole(context.Background(), 100, model.RoleParent, 55); err != nil {
		t.Fatalf("SetRole: %v", err)
	}

	if users.users[100].Role != model.RoleParent {
		t.Fatalf("role not persisted: %q", users.users[100].Role)
	}
	if len(channel.edits) != 1 || channel.edits[0] != MsgRoleSaved {
		t.Fatalf("expected keyboard message edited to %q, got %v", MsgRoleSaved, channel.edits)
	}
	if len(channel.polls) != 1 || channel.polls[0].question != "Вопрос 1" {
		t.Fatalf("expected first question as poll, got %v", channel.polls)
	}
	if got := questions.byRole[model.RoleParent][0].TelegramPollID; got != channel.polls[0].pollID {
		t.Fatalf("poll id not stored on question: %q", got)
	}
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	users := newStubUsers()
	users.GetOrCreateByTgID(100)
	eng := newTestEngine(users, newStubQuestions(), &stubAnswers{}, &stubChannel{})

	if err := eng.SetRole(context.Background(), 100, model.Role("teacher"), 1); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if users.users[100].Role != "" {
		t.Fatalf("role must stay unset, got %q", users.users[100].Role)
	}
}

func TestPollAnswerAdvancesToNextQuestion(t *testing.T) {
	users := newStubUsers()
	u, _ := users.GetOrCreateByTgID(100)
	u.Role = model.RoleParent
	questions := newStubQuestions(
		choiceQuestion(1, model.RoleParent, "Первый", "Да", "Нет"),
		choiceQuestion(2, model.RoleParent, "Второй", "А", "Б"),
	)
	answers := &stubAnswers{}
	channel := &stubChannel{}
	eng := newTestEngine(users, questions, answers, channel)

	if err := eng.Start(context.Background(), 100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.HandlePollAnswer(context.Background(), 100, channel.polls[0].pollID, []int{1}); err != nil {
		t.Fatalf("HandlePollAnswer: %v", err)
	}

	if len(answers.created) != 1 {
		t.Fatalf("expected one answer, got %d", len(answers.created))
	}
	if answers.created[0].Answer != "Нет" || answers.created[0].QuestionID != 1 {
		t.Fatalf("unexpected answer row: %+v", answers.created[0])
	}
	if len(channel.polls) != 2 || channel.polls[1].question != "Второй" {
		t.Fatalf("expected second question dispatched, got %v", channel.polls)
	}
}

func TestMultiChoiceRecordsEachSelection(t *testing.T) {
	users := newStubUsers()
	u, _ := users.GetOrCreateByTgID(100)
	u.Role = model.RoleStudent
	q := choiceQuestion(1, model.RoleStudent, "Предметы", "Математика", "Русский", "Информатика")
	q.Type = model.QuestionMultiChoice
	questions := newStubQuestions(q)
	answers := &stubAnswers{}
	channel := &stubChannel{}
	eng := newTestEngine(users, questions, answers, channel)

	if err := eng.Start(context.Background(), 100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !channel.polls[0].multi {
		t.Fatal("multi_choice must be sent as a multiple-answers poll")
	}

	if err := eng.HandlePollAnswer(context.Background(), 100, channel.polls[0].pollID, []int{0, 2}); err != nil {
		t.Fatalf("HandlePollAnswer: %v", err)
	}

	if len(answers.created) != 2 {
		t.Fatalf("expected two answer rows, got %d", len(answers.created))
	}
	if answers.created[0].Answer != "Математика" || answers.created[1].Answer != "Информатика" {
		t.Fatalf("selections recorded out of order: %+v", answers.created)
	}
	if lastMessage(t, channel) != MsgCompleted {
		t.Fatalf("single-question flow should complete, got %q", lastMessage(t, channel))
	}
}

func TestPollAnswerWithUnknownPollIsDropped(t *testing.T) {
	users := newStubUsers()
	u, _ := users.GetOrCreateByTgID(100)
	u.Role = model.RoleParent
	questions := newStubQuestions(choiceQuestion(1, model.RoleParent, "Первый", "Да", "Нет"))
	answers := &stubAnswers{}
	channel := &stubChannel{}
	eng := newTestEngine(users, questions, answers, channel)

	if err := eng.Start(context.Background(), 100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.HandlePollAnswer(context.Background(), 100, "stale-poll", []int{0}); err != nil {
		t.Fatalf("HandlePollAnswer: %v", err)
	}

	if len(answers.created) != 0 {
		t.Fatalf("stale poll must not produce answers, got %+v", answers.created)
	}
	if len(channel.polls) != 1 {
		t.Fatalf("stale poll must not advance the questionnaire, got %d polls", len(channel.polls))
	}
}

func TestPollAnswerSkipsOutOfRangeOptions(t *testing.T) {
	users := newStubUsers()
	u, _ := users.GetOrCreateByTgID(100)
	u.Role = model.RoleParent
	questions := newStubQuestions(choiceQuestion(1, model.RoleParent, "Первый", "Да", "Нет"))
	answers := &stubAnswers{}
	channel := &stubChannel{}
	eng := newTestEngine(users, questions, answers, channel)

	if err := eng.Start(context.Background(), 100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.HandlePollAnswer(context.Background(), 100, channel.polls[0].pollID, []int{5, 1}); err != nil {
		t.Fatalf("HandlePollAnswer: %v", err)
	}

	if len(answers.created) != 1 || answers.created[0].Answer != "Нет" {
		t.Fatalf("only the in-range option must be recorded, got %+v", answers.created)
	}
}

func TestScaleGroupFlow(t *testing.T) {
	users := newStubUsers()
	u, _ := users.GetOrCreateByTgID(100)
	u.Role = model.RoleParent
	q := &model.Question{
		BaseModel: model.BaseModel{ID: 7},
		Role:      model.RoleParent,
		Text:      "Оцените утверждения:",
		Type:      model.QuestionScaleGroup,
		Options: datatypes.NewJSONType([]model.Option{
			{Key: "а", Text: "Первое"},
			{Key: "б", Text: "Второе"},
		}),
		IsActive: true,
	}
	questions := newStubQuestions(q)
	answers := &stubAnswers{}
	channel := &stubChannel{}
	eng := newTestEngine(users, questions, answers, channel)

	ctx := context.Background()
	if err := eng.Start(ctx, 100); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Интро, текст группы, первое утверждение
	if got := lastMessage(t, channel); got != scalePrompt(model.Option{Key: "а", Text: "Первое"}) {
		t.Fatalf("first scale prompt mismatch: %q", got)
	}

	// Вне диапазона и не число: вопрос повторяется, ответа нет
	for _, bad := range []string{"11", "0", "много"} {
		if err := eng.HandleText(ctx, 100, bad); err != nil {
			t.Fatalf("HandleText(%q): %v", bad, err)
		}
		if got := lastMessage(t, channel); got != MsgScaleRange {
			t.Fatalf("expected corrective prompt for %q, got %q", bad, got)
		}
	}
	if len(answers.created) != 0 {
		t.Fatalf("invalid input must not be recorded, got %+v", answers.created)
	}

	if err := eng.HandleText(ctx, 100, " 7 "); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if len(answers.created) != 1 || answers.created[0].Answer != "а: 7" {
		t.Fatalf("expected answer \"а: 7\", got %+v", answers.created)
	}
	if got := lastMessage(t, channel); got != scalePrompt(model.Option{Key: "б", Text: "Второе"}) {
		t.Fatalf("second scale prompt mismatch: %q", got)
	}

	if err := eng.HandleText(ctx, 100, "3"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if len(answers.created) != 2 || answers.created[1].Answer != "б: 3" {
		t.Fatalf("expected answer \"б: 3\", got %+v", answers.created)
	}
	if got := lastMessage(t, channel); got != MsgCompleted {
		t.Fatalf("group was the only question, expected completion, got %q", got)
	}
}

func TestEmptyScaleGroupIsSkipped(t *testing.T) {
	users := newStubUsers()
	u, _ := users.GetOrCreateByTgID(100)
	u.Role = model.RoleParent
	group := &model.Question{
		BaseModel: model.BaseModel{ID: 1},
		Role:      model.RoleParent,
		Text:      "Пустая группа",
		Type:      model.QuestionScaleGroup,
		IsActive:  true,
	}
	questions := newStubQuestions(group, choiceQuestion(2, model.RoleParent, "Следующий", "Да", "Нет"))
	channel := &stubChannel{}
	eng := newTestEngine(users, questions, &stubAnswers{}, channel)

	if err := eng.Start(context.Background(), 100); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if len(channel.polls) != 1 || channel.polls[0].question != "Следующий" {
		t.Fatalf("empty group must be skipped to the next question, got %v", channel.polls)
	}
}

func TestFreeTextStoredVerbatim(t *testing.T) {
	users := newStubUsers()
	u, _ := users.GetOrCreateByTgID(100)
	u.Role = model.RoleParent
	q := &model.Question{
		BaseModel: model.BaseModel{ID: 3},
		Role:      model.RoleParent,
		Text:      "Напишите свободно",
		Type:      model.QuestionText,
		IsActive:  true,
	}
	questions := newStubQuestions(q)
	answers := &stubAnswers{}
	channel := &stubChannel{}
	eng := newTestEngine(users, questions, answers, channel)

	ctx := context.Background()
	if err := eng.Start(ctx, 100); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Число на открытый вопрос — это текст, не оценка
	if err := eng.HandleText(ctx, 100, "7"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	if len(answers.created) != 1 || answers.created[0].Answer != "7" {
		t.Fatalf("text must be stored verbatim, got %+v", answers.created)
	}
	if answers.created[0].QuestionID != 3 {
		t.Fatalf("answer bound to wrong question: %+v", answers.created[0])
	}
}

func TestTextOutsideActiveModesIsIgnored(t *testing.T) {
	users := newStubUsers()
	u, _ := users.GetOrCreateByTgID(100)
	u.Role = model.RoleParent
	answers := &stubAnswers{}
	channel := &stubChannel{}
	eng := newTestEngine(users, newStubQuestions(), answers, channel)

	if err := eng.HandleText(context.Background(), 100, "привет"); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	if len(answers.created) != 0 || len(channel.messages) != 0 {
		t.Fatal("text outside scale and awaiting_text modes must be ignored")
	}
}

func TestCompletionIsIdempotent(t *testing.T) {
	users := newStubUsers()
	u, _ := users.GetOrCreateByTgID(100)
	u.Role = model.RoleParent
	channel := &stubChannel{}
	eng := newTestEngine(users, newStubQuestions(), &stubAnswers{}, channel)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := eng.Dispatch(ctx, 100); err != nil {
			t.Fatalf("Dispatch #%d: %v", i, err)
		}
		if got := lastMessage(t, channel); got != MsgCompleted {
			t.Fatalf("expected completion notice, got %q", got)
		}
	}
}

func TestResetRoleDropsProgress(t *testing.T) {
	users := newStubUsers()
	u, _ := users.GetOrCreateByTgID(100)
	u.Role = model.RoleParent
	questions := newStubQuestions(
		choiceQuestion(1, model.RoleParent, "Первый", "Да", "Нет"),
		choiceQuestion(2, model.RoleParent, "Второй", "А", "Б"),
	)
	channel := &stubChannel{}
	states := NewStateTable()
	eng := New(users, questions, &stubAnswers{}, channel, states, zap.NewNop())

	ctx := context.Background()
	if err := eng.Start(ctx, 100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.HandlePollAnswer(ctx, 100, channel.polls[0].pollID, []int{0}); err != nil {
		t.Fatalf("HandlePollAnswer: %v", err)
	}

	if err := eng.ResetRole(ctx, 100); err != nil {
		t.Fatalf("ResetRole: %v", err)
	}

	if users.users[100].Role != "" {
		t.Fatalf("role must be cleared, got %q", users.users[100].Role)
	}
	if states.Len() != 0 {
		t.Fatalf("respondent state must be dropped, table has %d entries", states.Len())
	}
	if got := channel.rolePrompts[len(channel.rolePrompts)-1]; got != MsgPickAgain {
		t.Fatalf("expected %q, got %q", MsgPickAgain, got)
	}
}
