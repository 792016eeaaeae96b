package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
)

func strPtr(s string) *string { return &s }

func newQuizFixture(t *testing.T) (*QuizHandler, *service.QuizService, string) {
	t.Helper()

	quizService := service.NewQuizService()
	token, _ := quizService.Open(models.QuizAction{
		Question: "Which organelle controls the cell?",
		Answers: []models.QuizAnswer{
			{Text: "Nucleus"},
			{Text: "Cell wall", Rationale: strPtr("The wall gives shape, it does not direct activity.")},
		},
		CorrectIndex:  0,
		ShowRationale: true,
	})

	return NewQuizHandler(quizService), quizService, token
}

func quizRequest(t *testing.T, handlerFunc gin.HandlerFunc, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var reader bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reader).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/quiz/"+token, &reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "token", Value: token}}

	handlerFunc(c)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) models.RenderState {
	t.Helper()

	var resp struct {
		State models.RenderState `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.State
}

func TestQuizHandlerGet(t *testing.T) {
	handler, _, token := newQuizFixture(t)

	w := quizRequest(t, handler.Get, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	state := decodeState(t, w)
	if state.State != models.SessionPresented {
		t.Fatalf("expected a presented session, got %q", state.State)
	}
	if state.Question != "Which organelle controls the cell?" {
		t.Fatalf("unexpected question %q", state.Question)
	}
}

func TestQuizHandlerGetUnknownToken(t *testing.T) {
	handler, _, _ := newQuizFixture(t)

	w := quizRequest(t, handler.Get, "no-such-session", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestQuizHandlerSelectAndSubmit(t *testing.T) {
	handler, _, token := newQuizFixture(t)

	option := 0
	w := quizRequest(t, handler.Select, token, models.SelectAnswerRequest{Option: &option})
	if w.Code != http.StatusOK {
		t.Fatalf("select: expected status 200, got %d", w.Code)
	}
	if state := decodeState(t, w); !state.CanSubmit {
		t.Fatalf("expected submit enabled after selecting")
	}

	w = quizRequest(t, handler.Submit, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected status 200, got %d", w.Code)
	}
	state := decodeState(t, w)
	if state.State != models.SessionAnswered {
		t.Fatalf("expected an answered session, got %q", state.State)
	}
	if state.Feedback == nil || !state.Feedback.Correct {
		t.Fatalf("expected correct feedback, got %+v", state.Feedback)
	}
}

func TestQuizHandlerSelectRequiresOption(t *testing.T) {
	handler, _, token := newQuizFixture(t)

	w := quizRequest(t, handler.Select, token, map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without an option, got %d", w.Code)
	}
}

func TestQuizHandlerSubmitWithoutSelection(t *testing.T) {
	handler, _, token := newQuizFixture(t)

	w := quizRequest(t, handler.Submit, token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}

	var resp struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Kind != string(models.KindNoSelection) {
		t.Fatalf("expected kind %q, got %q", models.KindNoSelection, resp.Kind)
	}
}

func TestQuizHandlerDismissFreesSession(t *testing.T) {
	handler, quizService, token := newQuizFixture(t)

	option := 1
	quizRequest(t, handler.Select, token, models.SelectAnswerRequest{Option: &option})
	quizRequest(t, handler.Submit, token, nil)

	w := quizRequest(t, handler.Dismiss, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dismiss: expected status 200, got %d", w.Code)
	}
	if state := decodeState(t, w); state.State != models.SessionClosed {
		t.Fatalf("expected a closed session, got %q", state.State)
	}

	if quizService.OpenCount() != 0 {
		t.Fatalf("expected the session released, %d still open", quizService.OpenCount())
	}
	if w := quizRequest(t, handler.Get, token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after dismissal, got %d", w.Code)
	}
}
