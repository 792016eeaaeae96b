package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

// defaultMaxSessions bounds the in-memory session map. Abandoned sessions
// (student closed the tab without dismissing) are evicted oldest-first once
// the cap is reached; there is no time-based expiry.
const defaultMaxSessions = 10000

var (
	quizMetricsOnce sync.Once
	quizOpened      prometheus.Counter
	quizGraded      *prometheus.CounterVec
	quizDismissed   prometheus.Counter
)

func initQuizMetrics() {
	quizMetricsOnce.Do(func() {
		quizOpened = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "digital_microscope",
			Subsystem: "quiz",
			Name:      "sessions_opened_total",
			Help:      "Total quiz sessions opened by zone clicks",
		})

		quizGraded = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "digital_microscope",
			Subsystem: "quiz",
			Name:      "sessions_graded_total",
			Help:      "Total quiz submissions graded",
		}, []string{"result"})

		quizDismissed = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "digital_microscope",
			Subsystem: "quiz",
			Name:      "sessions_dismissed_total",
			Help:      "Total quiz sessions dismissed after feedback",
		})
	})
}

// quizSession holds one student's pass through a single quiz zone. The quiz
// payload is a snapshot taken at open time, so concurrent edits to the zone
// never affect a session in flight.
type quizSession struct {
	quiz     models.QuizAction
	state    models.SessionState
	selected *int
	openedAt time.Time
}

// QuizService owns every open quiz session. Sessions live only in memory and
// only between Open and Dismiss; each click on a quiz zone starts a fresh one
// with no memory of earlier attempts.
type QuizService struct {
	mu          sync.RWMutex
	sessions    map[string]*quizSession
	maxSessions int
}

func NewQuizService() *QuizService {
	initQuizMetrics()

	return &QuizService{
		sessions:    make(map[string]*quizSession),
		maxSessions: defaultMaxSessions,
	}
}

// Open starts a session in the presented state and returns its token with the
// initial render state.
func (s *QuizService) Open(quiz models.QuizAction) (string, models.RenderState) {
	session := &quizSession{
		quiz:     quiz,
		state:    models.SessionPresented,
		openedAt: time.Now(),
	}

	token := uuid.New().String()

	s.mu.Lock()
	if len(s.sessions) >= s.maxSessions {
		s.evictOldestLocked()
	}
	s.sessions[token] = session
	s.mu.Unlock()

	quizOpened.Inc()

	return token, renderState(session)
}

// Select records the student's current choice. Re-selecting replaces the
// previous choice; selecting the same option again is a no-op. Only valid
// while the session is still presented.
func (s *QuizService) Select(token string, option int) (models.RenderState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return models.RenderState{}, ErrSessionNotFound
	}

	if session.state != models.SessionPresented {
		return renderState(session), ErrAlreadyAnswered
	}

	if option < 0 || option >= len(session.quiz.Answers) {
		return renderState(session), models.NewValidationError(models.KindOutOfRange,
			"option %d is out of range for %d answers", option, len(session.quiz.Answers))
	}

	session.selected = &option
	return renderState(session), nil
}

// Submit grades the current selection exactly once and moves the session to
// answered. Submitting with nothing selected leaves the session untouched.
func (s *QuizService) Submit(token string) (models.RenderState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return models.RenderState{}, ErrSessionNotFound
	}

	if session.state != models.SessionPresented {
		return renderState(session), ErrAlreadyAnswered
	}

	if session.selected == nil {
		return renderState(session), models.NewValidationError(models.KindNoSelection,
			"no answer selected")
	}

	session.state = models.SessionAnswered

	if *session.selected == session.quiz.CorrectIndex {
		quizGraded.WithLabelValues("correct").Inc()
	} else {
		quizGraded.WithLabelValues("incorrect").Inc()
	}

	return renderState(session), nil
}

// Dismiss closes an answered session and frees it. The returned render state
// is the session's final frame; the token is invalid afterwards.
func (s *QuizService) Dismiss(token string) (models.RenderState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return models.RenderState{}, ErrSessionNotFound
	}

	if session.state != models.SessionAnswered {
		return renderState(session), ErrNotYetAnswered
	}

	session.state = models.SessionClosed
	delete(s.sessions, token)

	quizDismissed.Inc()

	return renderState(session), nil
}

// Get returns the current render state without changing anything.
func (s *QuizService) Get(token string) (models.RenderState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return models.RenderState{}, ErrSessionNotFound
	}

	return renderState(session), nil
}

// OpenCount reports how many sessions are currently held in memory.
func (s *QuizService) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *QuizService) evictOldestLocked() {
	var oldestToken string
	var oldestAt time.Time

	for token, session := range s.sessions {
		if oldestToken == "" || session.openedAt.Before(oldestAt) {
			oldestToken = token
			oldestAt = session.openedAt
		}
	}

	if oldestToken != "" {
		delete(s.sessions, oldestToken)
		logger.Warn("Evicted abandoned quiz session", map[string]interface{}{
			"opened_at": oldestAt,
		})
	}
}

// renderState derives the full client-facing view of a session from its state
// and captured selection alone.
func renderState(session *quizSession) models.RenderState {
	state := models.RenderState{
		State:    session.state,
		Question: session.quiz.Question,
		Options:  make([]models.OptionState, len(session.quiz.Answers)),
	}

	selected := -1
	if session.selected != nil {
		selected = *session.selected
	}

	for i, answer := range session.quiz.Answers {
		option := models.OptionState{
			Text:     answer.Text,
			Selected: i == selected,
			Enabled:  session.state == models.SessionPresented,
			Marker:   models.MarkerNone,
		}

		if session.state != models.SessionPresented {
			if i == session.quiz.CorrectIndex {
				option.Marker = models.MarkerCorrect
			} else if i == selected {
				option.Marker = models.MarkerIncorrect
			}
		}

		state.Options[i] = option
	}

	switch session.state {
	case models.SessionPresented:
		state.CanSubmit = selected >= 0
	case models.SessionAnswered:
		state.CanDismiss = true
		state.Feedback = feedbackFor(session.quiz, selected)
	case models.SessionClosed:
		state.Feedback = feedbackFor(session.quiz, selected)
	}

	return state
}

// feedbackFor builds the graded feedback line. A wrong answer's rationale is
// reproduced verbatim when rationales are enabled and one exists; the correct
// answer never shows a rationale.
func feedbackFor(quiz models.QuizAction, selected int) *models.Feedback {
	if selected == quiz.CorrectIndex {
		return &models.Feedback{Correct: true, Text: "Correct!"}
	}

	if quiz.ShowRationale && selected >= 0 && selected < len(quiz.Answers) {
		if rationale := quiz.Answers[selected].Rationale; rationale != nil && *rationale != "" {
			return &models.Feedback{Correct: false, Text: *rationale}
		}
	}

	correctText := ""
	if quiz.CorrectIndex >= 0 && quiz.CorrectIndex < len(quiz.Answers) {
		correctText = quiz.Answers[quiz.CorrectIndex].Text
	}

	return &models.Feedback{
		Correct: false,
		Text:    fmt.Sprintf("The correct answer is %q.", correctText),
	}
}
