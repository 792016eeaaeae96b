package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

var (
	resolverMetricsOnce sync.Once
	zoneClicks          *prometheus.CounterVec
	rangeFallbacks      prometheus.Counter
)

func initResolverMetrics() {
	resolverMetricsOnce.Do(func() {
		zoneClicks = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "digital_microscope",
			Subsystem: "resolver",
			Name:      "zone_clicks_total",
			Help:      "Zone clicks resolved, by action kind",
		}, []string{"kind"})

		rangeFallbacks = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "digital_microscope",
			Subsystem: "resolver",
			Name:      "out_of_range_fallbacks_total",
			Help:      "Targeted or quiz zones that fell back to sequential advance",
		})
	})
}

// ResolverService turns a zone click into exactly one dispatch directive.
// Precedence between conflicting stored fields was settled at decode time, so
// resolution only switches on the decoded action kind.
type ResolverService struct {
	quiz      *QuizService
	navigator *Navigator
}

func NewResolverService(quiz *QuizService, navigator *Navigator) *ResolverService {
	initResolverMetrics()

	return &ResolverService{
		quiz:      quiz,
		navigator: navigator,
	}
}

// Resolve dispatches a click on the given zone. current is the position of
// the view the click happened on; viewCount is the lesson's current view
// count. Never returns an error: the worst a broken zone can do is behave as
// plain sequential navigation.
func (s *ResolverService) Resolve(zone models.Zone, current, viewCount int) models.Dispatch {
	zoneClicks.WithLabelValues(string(zone.Action.Kind)).Inc()

	switch zone.Action.Kind {
	case models.ActionBanner:
		return models.Dispatch{
			Kind: models.DispatchBanner,
			Banner: &models.BannerDirective{
				Text:     zone.Action.Banner.Text,
				Position: zone.Action.Banner.Position,
			},
		}

	case models.ActionQuiz:
		quiz := *zone.Action.Quiz
		if !quiz.Playable() {
			rangeFallbacks.Inc()
			logger.Warn("Quiz zone has an unplayable payload, advancing sequentially", map[string]interface{}{
				"label":         zone.Label,
				"answers":       len(quiz.Answers),
				"correct_index": quiz.CorrectIndex,
			})
			return s.sequential(current, viewCount)
		}

		token, state := s.quiz.Open(quiz)
		return models.Dispatch{
			Kind: models.DispatchQuiz,
			Quiz: &models.QuizStartDirective{Token: token, State: state},
		}

	case models.ActionTargeted:
		directive, err := s.navigator.NavigateTo(zone.Action.Targeted.TargetView, viewCount)
		if err != nil {
			rangeFallbacks.Inc()
			logger.Warn("Zone targets a view outside the lesson, advancing sequentially", map[string]interface{}{
				"label":       zone.Label,
				"target_view": zone.Action.Targeted.TargetView,
				"view_count":  viewCount,
			})
			return s.sequential(current, viewCount)
		}
		return models.Dispatch{Kind: models.DispatchNavigate, Navigate: &directive}

	default:
		return s.sequential(current, viewCount)
	}
}

// ResolveAt resolves a click by coordinates. Zones later in the list sit on
// top of earlier ones, so the hit test walks the list backwards; a click that
// lands on no zone advances sequentially.
func (s *ResolverService) ResolveAt(view models.View, x, y float64, viewCount int) models.Dispatch {
	for i := len(view.Zones) - 1; i >= 0; i-- {
		if view.Zones[i].Shape.Contains(x, y) {
			return s.Resolve(view.Zones[i], view.Position, viewCount)
		}
	}

	zoneClicks.WithLabelValues("miss").Inc()
	return s.sequential(view.Position, viewCount)
}

func (s *ResolverService) sequential(current, viewCount int) models.Dispatch {
	directive := s.navigator.AdvanceSequential(current, viewCount)
	return models.Dispatch{Kind: models.DispatchNavigate, Navigate: &directive}
}
