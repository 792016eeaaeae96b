package service

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/constants"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/repository"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/cache"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/utils"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/validator"
)

// maxSlugProbes bounds the numeric-suffix search for a free slug.
const maxSlugProbes = 100

type LessonService struct {
	lessonRepo repository.LessonRepository
	viewRepo   repository.ViewRepository
	cache      *cache.Cache
}

func NewLessonService(lessonRepo repository.LessonRepository, viewRepo repository.ViewRepository, cacheService *cache.Cache) *LessonService {
	return &LessonService{
		lessonRepo: lessonRepo,
		viewRepo:   viewRepo,
		cache:      cacheService,
	}
}

func (s *LessonService) Create(req models.CreateLessonRequest) (*models.Lesson, error) {
	slug, err := s.resolveSlug(req.Slug, req.Title)
	if err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		Title:       validator.TrimSpaces(req.Title),
		Slug:        slug,
		Description: validator.SanitizeHTML(req.Description),
		Published:   req.Published,
		PublishAt:   req.PublishAt.Pointer(),
	}

	normalizePublicationState(lesson, time.Now())

	if err := s.lessonRepo.Create(lesson); err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}

	s.cache.InvalidateLessonLists()

	logger.Info("Lesson created", map[string]interface{}{
		"lesson_id": lesson.ID,
		"slug":      lesson.Slug,
		"published": lesson.Published,
	})

	return s.lessonRepo.GetByID(lesson.ID)
}

func (s *LessonService) Update(id uint, req models.UpdateLessonRequest) (*models.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	oldSlug := lesson.Slug

	if req.Title != nil {
		lesson.Title = validator.TrimSpaces(*req.Title)
	}
	// The slug only changes when the caller sends one explicitly. Shared
	// lesson links must survive a title edit.
	if req.Slug != nil && *req.Slug != lesson.Slug {
		taken, err := s.lessonRepo.ExistsBySlug(*req.Slug)
		if err != nil {
			return nil, fmt.Errorf("failed to check slug: %w", err)
		}
		if taken {
			return nil, ErrSlugTaken
		}
		lesson.Slug = *req.Slug
	}
	if req.Description != nil {
		lesson.Description = validator.SanitizeHTML(*req.Description)
	}
	if req.Published != nil {
		lesson.Published = *req.Published
	}
	if req.PublishAt.Set {
		lesson.PublishAt = req.PublishAt.Pointer()
	}

	normalizePublicationState(lesson, time.Now())

	if err := s.lessonRepo.Update(lesson); err != nil {
		return nil, err
	}

	s.invalidate(oldSlug)
	if lesson.Slug != oldSlug {
		s.cache.InvalidateLesson(lesson.Slug)
	}

	return s.lessonRepo.GetByID(lesson.ID)
}

func (s *LessonService) Delete(id uint) error {
	lesson, err := s.lessonRepo.GetByID(id)
	if err != nil {
		return err
	}

	if err := s.lessonRepo.Delete(id); err != nil {
		return err
	}

	s.invalidate(lesson.Slug)

	logger.Info("Lesson deleted", map[string]interface{}{
		"lesson_id": id,
		"slug":      lesson.Slug,
	})

	return nil
}

func (s *LessonService) GetByID(id uint) (*models.Lesson, error) {
	return s.lessonRepo.GetByID(id)
}

// GetPublishedBySlug serves the student-facing lesson payload. The payload is
// cached whole; the visit is recorded off the request path.
func (s *LessonService) GetPublishedBySlug(slug string) (*models.Lesson, error) {
	lesson, err := s.getPublished(slug)
	if err != nil {
		return nil, err
	}
	s.recordVisit(lesson.ID)
	return lesson, nil
}

// PeekPublishedBySlug fetches a published lesson without counting a visit.
// Zone clicks and navigation hit this path; only the initial open counts.
func (s *LessonService) PeekPublishedBySlug(slug string) (*models.Lesson, error) {
	return s.getPublished(slug)
}

func (s *LessonService) getPublished(slug string) (*models.Lesson, error) {
	var cached models.Lesson
	if err := s.cache.GetCachedLesson(slug, &cached); err == nil {
		return &cached, nil
	}

	lesson, err := s.lessonRepo.GetPublishedBySlug(slug)
	if err != nil {
		return nil, err
	}

	s.cache.CacheLesson(slug, lesson)

	return lesson, nil
}

func (s *LessonService) recordVisit(lessonID uint) {
	go func() {
		if err := s.lessonRepo.IncrementVisits(lessonID); err != nil {
			logger.Error(err, "Failed to record lesson visit", map[string]interface{}{
				"lesson_id": lessonID,
			})
		}
	}()
}

// GetPublished lists published lessons for the public catalog.
func (s *LessonService) GetPublished(page, limit int, search string) ([]models.Lesson, int64, error) {
	page, limit = clampPage(page, limit)
	offset := (page - 1) * limit

	cacheKey := fmt.Sprintf("lessons:page:%d:limit:%d", page, limit)
	if search != "" {
		cacheKey += fmt.Sprintf(":q:%s", search)
	}

	var cached struct {
		Lessons []models.Lesson
		Total   int64
	}
	if err := s.cache.GetCachedLessonList(cacheKey, &cached); err == nil {
		return cached.Lessons, cached.Total, nil
	}

	published := true
	lessons, total, err := s.lessonRepo.GetAll(offset, limit, &published, search)
	if err != nil {
		return nil, 0, err
	}

	result := struct {
		Lessons []models.Lesson
		Total   int64
	}{lessons, total}
	s.cache.CacheLessonList(cacheKey, result)

	return lessons, total, nil
}

// GetAllAdmin lists every lesson including drafts, uncached.
func (s *LessonService) GetAllAdmin(page, limit int, search string) ([]models.Lesson, int64, error) {
	page, limit = clampPage(page, limit)
	offset := (page - 1) * limit
	return s.lessonRepo.GetAll(offset, limit, nil, search)
}

func (s *LessonService) GetPopular(limit int) ([]models.Lesson, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.lessonRepo.GetPopular(limit)
}

// Publish flips a lesson live, optionally at a scheduled time.
func (s *LessonService) Publish(id uint, req models.PublishLessonRequest) (*models.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if len(lesson.Views) == 0 {
		return nil, ErrLessonEmpty
	}

	lesson.Published = true
	if req.PublishAt.Set {
		lesson.PublishAt = req.PublishAt.Pointer()
	}

	normalizePublicationState(lesson, time.Now())

	if err := s.lessonRepo.Update(lesson); err != nil {
		return nil, err
	}

	s.invalidate(lesson.Slug)

	logger.Info("Lesson published", map[string]interface{}{
		"lesson_id":  lesson.ID,
		"slug":       lesson.Slug,
		"publish_at": lesson.PublishAt,
	})

	return lesson, nil
}

func (s *LessonService) Unpublish(id uint) (*models.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	lesson.Published = false
	lesson.PublishAt = nil
	lesson.PublishedAt = nil

	if err := s.lessonRepo.Update(lesson); err != nil {
		return nil, err
	}

	s.invalidate(lesson.Slug)

	logger.Info("Lesson unpublished", map[string]interface{}{
		"lesson_id": lesson.ID,
		"slug":      lesson.Slug,
	})

	return lesson, nil
}

// AddView appends a view at the next free position.
func (s *LessonService) AddView(lessonID uint, req models.CreateViewRequest) (*models.View, error) {
	lesson, err := s.lessonRepo.GetByID(lessonID)
	if err != nil {
		return nil, err
	}

	position, err := s.viewRepo.NextPosition(lessonID)
	if err != nil {
		return nil, err
	}

	view := &models.View{
		LessonID:    lessonID,
		Position:    position,
		Description: validator.SanitizeHTML(req.Description),
		ImageURL:    req.ImageURL,
		Zones:       models.ZoneList{},
	}

	if err := s.viewRepo.Create(view); err != nil {
		return nil, fmt.Errorf("failed to create view: %w", err)
	}

	s.invalidate(lesson.Slug)

	return view, nil
}

// UpdateView edits a view addressed by its position in the sequence. A
// position change reorders the sequence; the other views close ranks.
func (s *LessonService) UpdateView(lessonID uint, viewIndex int, req models.UpdateViewRequest) (*models.View, error) {
	lesson, err := s.lessonRepo.GetByID(lessonID)
	if err != nil {
		return nil, err
	}

	if viewIndex < 0 || viewIndex >= len(lesson.Views) {
		return nil, gorm.ErrRecordNotFound
	}

	view := lesson.Views[viewIndex]

	if req.Description != nil {
		view.Description = validator.SanitizeHTML(*req.Description)
	}
	if req.ImageURL != nil {
		view.ImageURL = *req.ImageURL
	}

	if err := s.viewRepo.Update(&view); err != nil {
		return nil, err
	}

	if req.Position != nil && *req.Position != viewIndex {
		if err := s.moveView(lesson, viewIndex, *req.Position); err != nil {
			return nil, err
		}
	}

	s.invalidate(lesson.Slug)

	return s.viewRepo.GetByID(view.ID)
}

func (s *LessonService) moveView(lesson *models.Lesson, from, to int) error {
	if to < 0 {
		to = 0
	}
	if to >= len(lesson.Views) {
		to = len(lesson.Views) - 1
	}

	ids := make([]uint, 0, len(lesson.Views))
	for _, v := range lesson.Views {
		ids = append(ids, v.ID)
	}

	moved := ids[from]
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:to], append([]uint{moved}, ids[to:]...)...)

	return s.viewRepo.Reorder(lesson.ID, ids)
}

// DeleteView removes a view and closes the position gap. Zones elsewhere that
// target the removed position are left alone; clicks on them fall back to
// sequential advance at resolve time.
func (s *LessonService) DeleteView(lessonID uint, viewIndex int) error {
	lesson, err := s.lessonRepo.GetByID(lessonID)
	if err != nil {
		return err
	}

	if viewIndex < 0 || viewIndex >= len(lesson.Views) {
		return gorm.ErrRecordNotFound
	}

	if err := s.viewRepo.Delete(lesson.Views[viewIndex].ID); err != nil {
		return err
	}

	if err := s.viewRepo.Resequence(lessonID); err != nil {
		return err
	}

	s.invalidate(lesson.Slug)

	logger.Info("View deleted", map[string]interface{}{
		"lesson_id": lessonID,
		"view":      viewIndex,
	})

	return nil
}

func (s *LessonService) invalidate(slug string) {
	s.cache.InvalidateLesson(slug)
	s.cache.InvalidateLessonLists()
}

func (s *LessonService) resolveSlug(explicit, title string) (string, error) {
	if explicit != "" {
		taken, err := s.lessonRepo.ExistsBySlug(explicit)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if taken {
			return "", ErrSlugTaken
		}
		return explicit, nil
	}

	base := utils.GenerateSlug(title)
	if base == "" {
		base = "lesson"
	}

	slug := base
	for i := 2; i <= maxSlugProbes; i++ {
		taken, err := s.lessonRepo.ExistsBySlug(slug)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}

	return "", errors.New("could not find a free slug")
}

// normalizePublicationState keeps the three publication fields consistent on
// every write. Times are stored in UTC.
func normalizePublicationState(lesson *models.Lesson, now time.Time) {
	now = now.UTC()

	if lesson.PublishAt != nil {
		utc := lesson.PublishAt.UTC()
		lesson.PublishAt = &utc
	}

	if !lesson.Published {
		lesson.PublishedAt = nil
		return
	}

	if lesson.PublishAt == nil || !lesson.PublishAt.After(now) {
		if lesson.PublishedAt == nil {
			stamp := now
			if lesson.PublishAt != nil {
				stamp = *lesson.PublishAt
			}
			lesson.PublishedAt = &stamp
		}
		return
	}

	// Scheduled for the future: the sweep job stamps PublishedAt when the
	// moment arrives.
	lesson.PublishedAt = nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = constants.DefaultLessonPageSize
	}
	if limit > constants.MaxLessonPageSize {
		limit = constants.MaxLessonPageSize
	}
	return page, limit
}
