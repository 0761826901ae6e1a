package engine

import (
	"sync"

	"github.com/EgorMarkor/BotOpros/internal/model"

	"github.com/looplab/fsm"
)

// Режимы диалога респондента.
const (
	// Роль выбрана, анкета не начата либо ждём ответ на живой опрос
	StateIdle     = "idle"
	StateQuestion = "question"
	// Ждём свободный текст на открытый вопрос
	StateAwaitingText = "awaiting_text"
	// Идёт групповая шкала, ответы трактуются как оценки 1..10
	StateScale = "scale"
	StateDone  = "done"
)

const (
	eventAsk        = "ask"
	eventAwaitText  = "await_text"
	eventBeginScale = "begin_scale"
	eventAnswered   = "answered"
	eventComplete   = "complete"
)

// ScaleState — вложенный курсор по утверждениям одного scale_group-вопроса.
// Внешний индекс не двигается, пока курсор не пройдёт все утверждения.
type ScaleState struct {
	QuestionID uint
	Items      []model.Option
	Cursor     int
}

// RespondentState — переходное (непersisted) состояние прохождения анкеты
// одним респондентом. Перезапуск процесса обнуляет его для всех.
type RespondentState struct {
	// Индекс в упорядоченном списке активных вопросов роли
	Index int
	// ID вопроса, на который ждём свободный текст (0 — не ждём)
	AwaitingQuestionID uint
	Scale              *ScaleState

	mode *fsm.FSM
	mu   sync.Mutex
}

func newRespondentState() *RespondentState {
	return &RespondentState{mode: newModeFSM()}
}

func newModeFSM() *fsm.FSM {
	all := []string{StateIdle, StateQuestion, StateAwaitingText, StateScale, StateDone}
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventAsk, Src: all, Dst: StateQuestion},
			{Name: eventAwaitText, Src: []string{StateQuestion}, Dst: StateAwaitingText},
			{Name: eventBeginScale, Src: []string{StateQuestion}, Dst: StateScale},
			{Name: eventAnswered, Src: all, Dst: StateQuestion},
			{Name: eventComplete, Src: all, Dst: StateDone},
		},
		fsm.Callbacks{},
	)
}

// Mode — текущий режим диалога.
func (s *RespondentState) Mode() string {
	return s.mode.Current()
}

// Reset возвращает состояние к началу анкеты.
func (s *RespondentState) Reset() {
	s.Index = 0
	s.AwaitingQuestionID = 0
	s.Scale = nil
	s.mode.SetState(StateIdle)
}

// StateTable — таблица состояний прохождения, ключ — Telegram ID.
// Создание при первом обращении и удаление при сбросе роли — явные
// операции; словарная семантика наружу не протекает.
type StateTable struct {
	mu     sync.Mutex
	states map[int64]*RespondentState
}

func NewStateTable() *StateTable {
	return &StateTable{states: make(map[int64]*RespondentState)}
}

// Acquire возвращает состояние респондента (создав при необходимости)
// и берёт его блокировку на время обработки одного события. Снимается
// через Release на всех путях выхода.
func (t *StateTable) Acquire(tgID int64) *RespondentState {
	t.mu.Lock()
	st, ok := t.states[tgID]
	if !ok {
		st = newRespondentState()
		t.states[tgID] = st
	}
	t.mu.Unlock()

	st.mu.Lock()
	return st
}

func (s *RespondentState) Release() {
	s.mu.Unlock()
}

// Drop удаляет состояние целиком (сброс роли).
func (t *StateTable) Drop(tgID int64) {
	t.mu.Lock()
	delete(t.states, tgID)
	t.mu.Unlock()
}

// Len — число респондентов с живым состоянием.
func (t *StateTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}
