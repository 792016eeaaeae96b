package service

import (
	"time"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/repository"
)

// visitTrendDays is the window of the admin dashboard's visit chart.
const visitTrendDays = 30

// LessonStatistics is the admin dashboard payload.
type LessonStatistics struct {
	TotalLessons     int64 `json:"total_lessons"`
	PublishedLessons int64 `json:"published_lessons"`
	TotalViews       int64 `json:"total_views"`
	TotalVisits      int64 `json:"total_visits"`

	TotalZones  int64            `json:"total_zones"`
	ZonesByKind map[string]int64 `json:"zones_by_kind"`

	// DanglingTargets counts targeted zones pointing outside their lesson's
	// current view sequence. Clicks on them fall back to sequential advance;
	// the count is surfaced so authors can repair them.
	DanglingTargets int64 `json:"dangling_targets"`

	TopLessons []models.Lesson         `json:"top_lessons"`
	VisitTrend []repository.DailyCount `json:"visit_trend"`
}

type StatisticsService struct {
	lessonRepo repository.LessonRepository
	viewRepo   repository.ViewRepository
}

func NewStatisticsService(lessonRepo repository.LessonRepository, viewRepo repository.ViewRepository) *StatisticsService {
	return &StatisticsService{
		lessonRepo: lessonRepo,
		viewRepo:   viewRepo,
	}
}

func (s *StatisticsService) Collect() (*LessonStatistics, error) {
	stats := &LessonStatistics{
		ZonesByKind: map[string]int64{},
	}

	var err error
	if stats.TotalLessons, err = s.lessonRepo.CountAll(); err != nil {
		return nil, err
	}
	if stats.PublishedLessons, err = s.lessonRepo.CountPublished(); err != nil {
		return nil, err
	}
	if stats.TotalViews, err = s.viewRepo.CountAll(); err != nil {
		return nil, err
	}
	if stats.TotalVisits, err = s.lessonRepo.TotalVisits(); err != nil {
		return nil, err
	}

	if err := s.collectZoneCensus(stats); err != nil {
		return nil, err
	}

	if stats.TopLessons, err = s.lessonRepo.GetPopular(5); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(visitTrendDays - 1))
	if stats.VisitTrend, err = s.lessonRepo.GetVisitStats(start); err != nil {
		return nil, err
	}

	return stats, nil
}

// collectZoneCensus walks every view's decoded zone list. Counting in Go
// keeps the action-kind rules in one place instead of restating them in SQL.
func (s *StatisticsService) collectZoneCensus(stats *LessonStatistics) error {
	views, err := s.viewRepo.GetAllWithZones()
	if err != nil {
		return err
	}

	viewsPerLesson := make(map[uint]int)
	for _, view := range views {
		viewsPerLesson[view.LessonID]++
	}

	for _, view := range views {
		for _, zone := range view.Zones {
			stats.TotalZones++
			stats.ZonesByKind[string(zone.Action.Kind)]++

			if zone.Action.Kind != models.ActionTargeted {
				continue
			}

			target := zone.Action.Targeted.TargetView
			if target < 0 || target >= viewsPerLesson[view.LessonID] {
				stats.DanglingTargets++
			}
		}
	}

	return nil
}
