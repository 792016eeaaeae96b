package service

import (
	"gorm.io/gorm"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/repository"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/cache"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/validator"
)

// ZoneService owns every mutation of a view's zone list. Writes build the new
// list in memory, validate it, then persist the whole list; a validation
// failure leaves the stored list untouched.
type ZoneService struct {
	lessonRepo repository.LessonRepository
	viewRepo   repository.ViewRepository
	cache      *cache.Cache
}

func NewZoneService(lessonRepo repository.LessonRepository, viewRepo repository.ViewRepository, cache *cache.Cache) *ZoneService {
	return &ZoneService{
		lessonRepo: lessonRepo,
		viewRepo:   viewRepo,
		cache:      cache,
	}
}

// zoneAddress is a loaded (lesson, view) pair with the decoded zone list.
type zoneAddress struct {
	lesson *models.Lesson
	view   *models.View
}

func (s *ZoneService) load(lessonID uint, viewIndex int) (*zoneAddress, error) {
	lesson, err := s.lessonRepo.GetByID(lessonID)
	if err != nil {
		return nil, err
	}

	if viewIndex < 0 || viewIndex >= len(lesson.Views) {
		return nil, gorm.ErrRecordNotFound
	}

	return &zoneAddress{lesson: lesson, view: &lesson.Views[viewIndex]}, nil
}

func (s *ZoneService) commit(addr *zoneAddress, zones models.ZoneList) error {
	if err := s.viewRepo.UpdateZones(addr.view.ID, zones); err != nil {
		return err
	}

	s.cache.InvalidateLesson(addr.lesson.Slug)
	return nil
}

// ListZones returns the decoded zone list for the editor.
func (s *ZoneService) ListZones(lessonID uint, viewIndex int) (models.ZoneList, error) {
	addr, err := s.load(lessonID, viewIndex)
	if err != nil {
		return nil, err
	}
	return addr.view.Zones, nil
}

// AddZone appends a zone with the given geometry and no action.
func (s *ZoneService) AddZone(lessonID uint, viewIndex int, req models.CreateZoneRequest) (*models.Zone, int, error) {
	shape, err := req.Shape()
	if err != nil {
		return nil, 0, err
	}
	if err := shape.Validate(); err != nil {
		return nil, 0, err
	}

	addr, err := s.load(lessonID, viewIndex)
	if err != nil {
		return nil, 0, err
	}

	zone := models.Zone{
		Shape:  shape,
		Label:  validator.TrimSpaces(req.Label),
		Action: models.Action{Kind: models.ActionNone},
	}

	zones := append(addr.view.Zones[:len(addr.view.Zones):len(addr.view.Zones)], zone)
	if err := s.commit(addr, zones); err != nil {
		return nil, 0, err
	}

	logger.Info("Zone added", map[string]interface{}{
		"lesson_id": lessonID,
		"view":      viewIndex,
		"zone":      len(zones) - 1,
		"shape":     string(zone.Shape.Kind),
	})

	return &zone, len(zones) - 1, nil
}

// SetAction replaces a zone's action with a freshly staged record. The new
// zone is built from the existing shape and label plus only the new kind's
// fields, so switching kinds can never leak stale properties. Nothing is
// persisted unless validation passes.
func (s *ZoneService) SetAction(lessonID uint, viewIndex, zoneIndex int, req models.SetZoneActionRequest) (*models.Zone, error) {
	addr, err := s.load(lessonID, viewIndex)
	if err != nil {
		return nil, err
	}

	zones := addr.view.Zones
	if zoneIndex < 0 || zoneIndex >= len(zones) {
		return nil, gorm.ErrRecordNotFound
	}

	action, err := req.Action()
	if err != nil {
		return nil, err
	}

	if action.Kind == models.ActionQuiz {
		normalized, err := action.Quiz.Normalize()
		if err != nil {
			return nil, err
		}
		action.Quiz = &normalized
	}

	if err := action.Validate(len(addr.lesson.Views)); err != nil {
		return nil, err
	}

	staged := models.Zone{
		Shape:  zones[zoneIndex].Shape,
		Label:  zones[zoneIndex].Label,
		Action: action,
	}

	next := make(models.ZoneList, len(zones))
	copy(next, zones)
	next[zoneIndex] = staged

	if err := s.commit(addr, next); err != nil {
		return nil, err
	}

	logger.Info("Zone action set", map[string]interface{}{
		"lesson_id": lessonID,
		"view":      viewIndex,
		"zone":      zoneIndex,
		"kind":      string(action.Kind),
	})

	return &staged, nil
}

// UpdateZoneLabel changes the label and nothing else.
func (s *ZoneService) UpdateZoneLabel(lessonID uint, viewIndex, zoneIndex int, label string) (*models.Zone, error) {
	addr, err := s.load(lessonID, viewIndex)
	if err != nil {
		return nil, err
	}

	zones := addr.view.Zones
	if zoneIndex < 0 || zoneIndex >= len(zones) {
		return nil, gorm.ErrRecordNotFound
	}

	next := make(models.ZoneList, len(zones))
	copy(next, zones)
	next[zoneIndex].Label = validator.TrimSpaces(label)

	if err := s.commit(addr, next); err != nil {
		return nil, err
	}

	return &next[zoneIndex], nil
}

// DeleteZone removes a zone by position. It never looks at the action
// payload, so every kind deletes through this one path; zones after the
// removed one shift down and keep their relative order.
func (s *ZoneService) DeleteZone(lessonID uint, viewIndex, zoneIndex int) error {
	addr, err := s.load(lessonID, viewIndex)
	if err != nil {
		return err
	}

	zones := addr.view.Zones
	if zoneIndex < 0 || zoneIndex >= len(zones) {
		return gorm.ErrRecordNotFound
	}

	next := make(models.ZoneList, 0, len(zones)-1)
	next = append(next, zones[:zoneIndex]...)
	next = append(next, zones[zoneIndex+1:]...)

	if err := s.commit(addr, next); err != nil {
		return err
	}

	logger.Info("Zone deleted", map[string]interface{}{
		"lesson_id": lessonID,
		"view":      viewIndex,
		"zone":      zoneIndex,
		"remaining": len(next),
	})

	return nil
}
