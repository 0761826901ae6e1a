package engine

import (
	"context"
	"testing"
)

func TestStateTableAcquireCreatesOnFirstUse(t *testing.T) {
	table := NewStateTable()

	st := table.Acquire(42)
	if st == nil {
		t.Fatal("Acquire must create state on first use")
	}
	if st.Mode() != StateIdle {
		t.Fatalf("fresh state must be idle, got %q", st.Mode())
	}
	st.Index = 3
	st.Release()

	again := table.Acquire(42)
	defer again.Release()
	if again != st {
		t.Fatal("Acquire must return the same state for the same respondent")
	}
	if again.Index != 3 {
		t.Fatalf("state must survive between acquisitions, index = %d", again.Index)
	}
	if table.Len() != 1 {
		t.Fatalf("expected one entry, got %d", table.Len())
	}
}

func TestStateTableDrop(t *testing.T) {
	table := NewStateTable()
	table.Acquire(42).Release()
	table.Acquire(43).Release()

	table.Drop(42)

	if table.Len() != 1 {
		t.Fatalf("expected one entry after drop, got %d", table.Len())
	}

	st := table.Acquire(42)
	defer st.Release()
	if st.Mode() != StateIdle || st.Index != 0 {
		t.Fatal("re-acquired respondent must start from scratch")
	}
}

func TestRespondentStateReset(t *testing.T) {
	st := newRespondentState()
	st.Index = 5
	st.AwaitingQuestionID = 9
	st.Scale = &ScaleState{QuestionID: 9, Cursor: 2}
	if err := st.mode.Event(context.Background(), eventAsk); err != nil {
		t.Fatalf("event: %v", err)
	}

	st.Reset()

	if st.Index != 0 || st.AwaitingQuestionID != 0 || st.Scale != nil {
		t.Fatalf("reset left residue: %+v", st)
	}
	if st.Mode() != StateIdle {
		t.Fatalf("reset must return mode to idle, got %q", st.Mode())
	}
}

func TestModeTransitions(t *testing.T) {
	ctx := context.Background()
	st := newRespondentState()

	steps := []struct {
		event string
		want  string
	}{
		{eventAsk, StateQuestion},
		{eventAwaitText, StateAwaitingText},
		{eventAnswered, StateQuestion},
		{eventBeginScale, StateScale},
		{eventAnswered, StateQuestion},
		{eventComplete, StateDone},
	}
	for _, s := range steps {
		if err := st.mode.Event(ctx, s.event); err != nil {
			t.Fatalf("event %q: %v", s.event, err)
		}
		if st.Mode() != s.want {
			t.Fatalf("after %q expected %q, got %q", s.event, s.want, st.Mode())
		}
	}

	// Переход begin_scale допустим только из режима вопроса
	fresh := newRespondentState()
	if err := fresh.mode.Event(ctx, eventBeginScale); err == nil {
		t.Fatal("begin_scale from idle must be rejected")
	}
}
