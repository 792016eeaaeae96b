package service

import (
	"errors"
	"testing"
	"time"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
)

func cellQuiz() models.QuizAction {
	return models.QuizAction{
		Question: "What is the dark round body inside the cell?",
		Answers: []models.QuizAnswer{
			{Text: "Nucleus"},
			{Text: "Chloroplast", Rationale: strPtr("Onion epidermis has no chloroplasts.")},
			{Text: "Air bubble", Rationale: strPtr("Bubbles sit between cells, not inside them.")},
		},
		CorrectIndex:  0,
		ShowRationale: true,
	}
}

func TestQuizServiceOpenPresentsQuestion(t *testing.T) {
	svc := NewQuizService()

	token, state := svc.Open(cellQuiz())
	if token == "" {
		t.Fatalf("expected a session token")
	}
	if state.State != models.SessionPresented {
		t.Fatalf("expected presented state, got %q", state.State)
	}
	if state.Question != "What is the dark round body inside the cell?" {
		t.Fatalf("unexpected question: %q", state.Question)
	}
	if len(state.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(state.Options))
	}
	for i, option := range state.Options {
		if !option.Enabled {
			t.Fatalf("expected option %d enabled before grading", i)
		}
		if option.Marker != models.MarkerNone {
			t.Fatalf("expected no marker before grading, option %d has %q", i, option.Marker)
		}
	}
	if state.CanSubmit {
		t.Fatalf("expected submit disabled before any selection")
	}
	if state.Feedback != nil {
		t.Fatalf("expected no feedback before grading")
	}
	if svc.OpenCount() != 1 {
		t.Fatalf("expected 1 open session, got %d", svc.OpenCount())
	}
}

func TestQuizServiceEachOpenIsFresh(t *testing.T) {
	svc := NewQuizService()

	first, _ := svc.Open(cellQuiz())
	if _, err := svc.Select(first, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, state := svc.Open(cellQuiz())
	if second == first {
		t.Fatalf("expected a distinct token per open")
	}
	for i, option := range state.Options {
		if option.Selected {
			t.Fatalf("expected the new session to start unselected, option %d is selected", i)
		}
	}
	if svc.OpenCount() != 2 {
		t.Fatalf("expected 2 open sessions, got %d", svc.OpenCount())
	}
}

func TestQuizServiceSelectEnablesSubmit(t *testing.T) {
	svc := NewQuizService()
	token, _ := svc.Open(cellQuiz())

	state, err := svc.Select(token, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.CanSubmit {
		t.Fatalf("expected submit enabled after a selection")
	}
	if !state.Options[1].Selected {
		t.Fatalf("expected option 1 selected")
	}

	state, err = svc.Select(token, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Options[1].Selected || !state.Options[2].Selected {
		t.Fatalf("expected reselection to replace the previous choice")
	}
}

func TestQuizServiceSelectOutOfRange(t *testing.T) {
	svc := NewQuizService()
	token, _ := svc.Open(cellQuiz())

	_, err := svc.Select(token, 7)
	if models.ValidationKind(err) != models.KindOutOfRange {
		t.Fatalf("expected OutOfRange, got %v", err)
	}

	state, err := svc.Get(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.CanSubmit {
		t.Fatalf("expected the failed selection to leave nothing selected")
	}
}

func TestQuizServiceSubmitWithoutSelection(t *testing.T) {
	svc := NewQuizService()
	token, _ := svc.Open(cellQuiz())

	_, err := svc.Submit(token)
	if models.ValidationKind(err) != models.KindNoSelection {
		t.Fatalf("expected NoSelection, got %v", err)
	}

	// The session must survive the refusal so the student can pick and retry.
	if _, err := svc.Select(token, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := svc.Submit(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.State != models.SessionAnswered {
		t.Fatalf("expected answered state after the retry, got %q", state.State)
	}
}

func TestQuizServiceWrongAnswerShowsRationale(t *testing.T) {
	svc := NewQuizService()
	token, _ := svc.Open(cellQuiz())

	if _, err := svc.Select(token, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := svc.Submit(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state.Feedback == nil || state.Feedback.Correct {
		t.Fatalf("expected incorrect feedback, got %+v", state.Feedback)
	}
	if state.Feedback.Text != "Onion epidermis has no chloroplasts." {
		t.Fatalf("expected the stored rationale verbatim, got %q", state.Feedback.Text)
	}

	if state.Options[0].Marker != models.MarkerCorrect {
		t.Fatalf("expected the correct option marked, got %q", state.Options[0].Marker)
	}
	if state.Options[1].Marker != models.MarkerIncorrect {
		t.Fatalf("expected the chosen option marked incorrect, got %q", state.Options[1].Marker)
	}
	if state.Options[2].Marker != models.MarkerNone {
		t.Fatalf("expected the untouched option unmarked, got %q", state.Options[2].Marker)
	}
	for i, option := range state.Options {
		if option.Enabled {
			t.Fatalf("expected option %d disabled after grading", i)
		}
	}
	if !state.CanDismiss {
		t.Fatalf("expected dismiss available after grading")
	}
}

func TestQuizServiceCorrectAnswer(t *testing.T) {
	svc := NewQuizService()
	token, _ := svc.Open(cellQuiz())

	if _, err := svc.Select(token, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := svc.Submit(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state.Feedback == nil || !state.Feedback.Correct {
		t.Fatalf("expected correct feedback, got %+v", state.Feedback)
	}
	if state.Feedback.Text != "Correct!" {
		t.Fatalf("unexpected feedback text: %q", state.Feedback.Text)
	}
}

func TestQuizServiceWrongAnswerWithoutRationaleFallsBack(t *testing.T) {
	quiz := cellQuiz()
	quiz.Answers[1].Rationale = nil

	svc := NewQuizService()
	token, _ := svc.Open(quiz)

	if _, err := svc.Select(token, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := svc.Submit(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `The correct answer is "Nucleus".`
	if state.Feedback == nil || state.Feedback.Text != want {
		t.Fatalf("expected %q, got %+v", want, state.Feedback)
	}
}

func TestQuizServiceRationaleSuppressed(t *testing.T) {
	quiz := cellQuiz()
	quiz.ShowRationale = false

	svc := NewQuizService()
	token, _ := svc.Open(quiz)

	if _, err := svc.Select(token, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := svc.Submit(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `The correct answer is "Nucleus".`
	if state.Feedback == nil || state.Feedback.Text != want {
		t.Fatalf("expected the fallback when rationales are off, got %+v", state.Feedback)
	}
}

func TestQuizServiceGradesOnlyOnce(t *testing.T) {
	svc := NewQuizService()
	token, _ := svc.Open(cellQuiz())

	if _, err := svc.Select(token, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Submit(token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Select(token, 0); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered on select, got %v", err)
	}
	if _, err := svc.Submit(token); !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered on resubmit, got %v", err)
	}
}

func TestQuizServiceDismissBeforeGrading(t *testing.T) {
	svc := NewQuizService()
	token, _ := svc.Open(cellQuiz())

	if _, err := svc.Dismiss(token); !errors.Is(err, ErrNotYetAnswered) {
		t.Fatalf("expected ErrNotYetAnswered, got %v", err)
	}
}

func TestQuizServiceDismissFreesSession(t *testing.T) {
	svc := NewQuizService()
	token, _ := svc.Open(cellQuiz())

	if _, err := svc.Select(token, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Submit(token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	final, err := svc.Dismiss(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.State != models.SessionClosed {
		t.Fatalf("expected the final frame closed, got %q", final.State)
	}

	if _, err := svc.Get(token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected the token freed, got %v", err)
	}
	if svc.OpenCount() != 0 {
		t.Fatalf("expected no open sessions, got %d", svc.OpenCount())
	}
}

func TestQuizServiceUnknownToken(t *testing.T) {
	svc := NewQuizService()

	if _, err := svc.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound from Get, got %v", err)
	}
	if _, err := svc.Select("missing", 0); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound from Select, got %v", err)
	}
	if _, err := svc.Submit("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound from Submit, got %v", err)
	}
	if _, err := svc.Dismiss("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound from Dismiss, got %v", err)
	}
}

func TestQuizServiceEvictsOldestAtCap(t *testing.T) {
	svc := NewQuizService()
	svc.maxSessions = 2

	oldest, _ := svc.Open(cellQuiz())
	svc.mu.Lock()
	svc.sessions[oldest].openedAt = time.Now().Add(-time.Hour)
	svc.mu.Unlock()

	kept, _ := svc.Open(cellQuiz())
	newest, _ := svc.Open(cellQuiz())

	if _, err := svc.Get(oldest); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected the oldest session evicted, got %v", err)
	}
	if _, err := svc.Get(kept); err != nil {
		t.Fatalf("expected the younger session kept, got %v", err)
	}
	if _, err := svc.Get(newest); err != nil {
		t.Fatalf("expected the new session admitted, got %v", err)
	}
	if svc.OpenCount() != 2 {
		t.Fatalf("expected the cap held at 2, got %d", svc.OpenCount())
	}
}
