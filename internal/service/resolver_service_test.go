package service

import (
	"testing"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
)

func resolverFixture() (*ResolverService, *QuizService) {
	quiz := NewQuizService()
	return NewResolverService(quiz, NewNavigator()), quiz
}

func rectZone(x, y, w, h float64, action models.Action) models.Zone {
	return models.Zone{
		Shape:  models.Shape{Kind: models.ShapeRect, Rect: &models.Rect{X: x, Y: y, Width: w, Height: h}},
		Action: action,
	}
}

func TestResolverBannerDispatch(t *testing.T) {
	svc, _ := resolverFixture()

	zone := rectZone(10, 10, 20, 20, models.Action{
		Kind:   models.ActionBanner,
		Banner: &models.BannerAction{Text: "This is the cell wall.", Position: "top"},
	})

	dispatch := svc.Resolve(zone, 0, 3)
	if dispatch.Kind != models.DispatchBanner {
		t.Fatalf("expected a banner dispatch, got %q", dispatch.Kind)
	}
	if dispatch.Banner.Text != "This is the cell wall." || dispatch.Banner.Position != "top" {
		t.Fatalf("expected the stored banner verbatim, got %+v", dispatch.Banner)
	}
}

func TestResolverQuizDispatchOpensSession(t *testing.T) {
	svc, quizSvc := resolverFixture()

	quiz := cellQuiz()
	dispatch := svc.Resolve(rectZone(10, 10, 20, 20, models.Action{Kind: models.ActionQuiz, Quiz: &quiz}), 0, 3)

	if dispatch.Kind != models.DispatchQuiz {
		t.Fatalf("expected a quiz dispatch, got %q", dispatch.Kind)
	}
	if dispatch.Quiz.Token == "" {
		t.Fatalf("expected a session token in the directive")
	}
	if dispatch.Quiz.State.State != models.SessionPresented {
		t.Fatalf("expected the initial render state, got %q", dispatch.Quiz.State.State)
	}
	if quizSvc.OpenCount() != 1 {
		t.Fatalf("expected the dispatch to open a session, got %d", quizSvc.OpenCount())
	}
}

func TestResolverUnplayableQuizFallsBack(t *testing.T) {
	svc, quizSvc := resolverFixture()

	quiz := cellQuiz()
	quiz.CorrectIndex = 7
	dispatch := svc.Resolve(rectZone(10, 10, 20, 20, models.Action{Kind: models.ActionQuiz, Quiz: &quiz}), 0, 3)

	if dispatch.Kind != models.DispatchNavigate {
		t.Fatalf("expected a navigate fallback, got %q", dispatch.Kind)
	}
	if dispatch.Navigate.Target != 1 || !dispatch.Navigate.Sequential {
		t.Fatalf("expected a sequential advance, got %+v", dispatch.Navigate)
	}
	if quizSvc.OpenCount() != 0 {
		t.Fatalf("expected no session for an unplayable quiz, got %d", quizSvc.OpenCount())
	}
}

func TestResolverTargetedDispatch(t *testing.T) {
	svc, _ := resolverFixture()

	zone := rectZone(10, 10, 20, 20, models.Action{
		Kind:     models.ActionTargeted,
		Targeted: &models.TargetedAction{TargetView: 2},
	})

	dispatch := svc.Resolve(zone, 0, 3)
	if dispatch.Kind != models.DispatchNavigate {
		t.Fatalf("expected a navigate dispatch, got %q", dispatch.Kind)
	}
	if dispatch.Navigate.Target != 2 || dispatch.Navigate.Sequential {
		t.Fatalf("expected a direct jump to view 2, got %+v", dispatch.Navigate)
	}
}

func TestResolverTargetedOutOfRangeFallsBack(t *testing.T) {
	svc, _ := resolverFixture()

	zone := rectZone(10, 10, 20, 20, models.Action{
		Kind:     models.ActionTargeted,
		Targeted: &models.TargetedAction{TargetView: 5},
	})

	dispatch := svc.Resolve(zone, 1, 3)
	if dispatch.Kind != models.DispatchNavigate {
		t.Fatalf("expected a navigate fallback, got %q", dispatch.Kind)
	}
	if dispatch.Navigate.Target != 2 || !dispatch.Navigate.Sequential || dispatch.Navigate.EndOfLesson {
		t.Fatalf("expected a sequential advance from view 1, got %+v", dispatch.Navigate)
	}
}

func TestResolverNoneAdvancesSequentially(t *testing.T) {
	svc, _ := resolverFixture()

	dispatch := svc.Resolve(rectZone(10, 10, 20, 20, models.Action{Kind: models.ActionNone}), 2, 3)
	if dispatch.Kind != models.DispatchNavigate {
		t.Fatalf("expected a navigate dispatch, got %q", dispatch.Kind)
	}
	if dispatch.Navigate.Target != 3 || !dispatch.Navigate.Sequential || !dispatch.Navigate.EndOfLesson {
		t.Fatalf("expected the advance off the last view flagged, got %+v", dispatch.Navigate)
	}
}

func TestResolverResolveAtPrefersTopmostZone(t *testing.T) {
	svc, _ := resolverFixture()

	lower := rectZone(0, 0, 60, 60, models.Action{
		Kind:   models.ActionBanner,
		Banner: &models.BannerAction{Text: "below", Position: "bottom"},
	})
	upper := rectZone(20, 20, 60, 60, models.Action{
		Kind:   models.ActionBanner,
		Banner: &models.BannerAction{Text: "above", Position: "bottom"},
	})
	view := models.View{Position: 1, Zones: models.ZoneList{lower, upper}}

	overlap := svc.ResolveAt(view, 30, 30, 3)
	if overlap.Kind != models.DispatchBanner || overlap.Banner.Text != "above" {
		t.Fatalf("expected the later zone to win the overlap, got %+v", overlap)
	}

	lone := svc.ResolveAt(view, 10, 10, 3)
	if lone.Kind != models.DispatchBanner || lone.Banner.Text != "below" {
		t.Fatalf("expected the only covering zone to win, got %+v", lone)
	}
}

func TestResolverResolveAtMissAdvances(t *testing.T) {
	svc, _ := resolverFixture()

	view := models.View{
		Position: 1,
		Zones: models.ZoneList{rectZone(0, 0, 20, 20, models.Action{
			Kind:   models.ActionBanner,
			Banner: &models.BannerAction{Text: "corner", Position: "top"},
		})},
	}

	dispatch := svc.ResolveAt(view, 90, 90, 3)
	if dispatch.Kind != models.DispatchNavigate {
		t.Fatalf("expected a miss to navigate, got %q", dispatch.Kind)
	}
	if dispatch.Navigate.Target != 2 || !dispatch.Navigate.Sequential {
		t.Fatalf("expected a sequential advance from the clicked view, got %+v", dispatch.Navigate)
	}
}
