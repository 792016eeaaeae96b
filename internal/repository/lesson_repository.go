package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
)

// DailyCount is one bucket of a per-day aggregate.
type DailyCount struct {
	Period time.Time `json:"period"`
	Count  int64     `json:"count"`
}

type LessonRepository interface {
	Create(lesson *models.Lesson) error
	GetByID(id uint) (*models.Lesson, error)
	GetPublishedBySlug(slug string) (*models.Lesson, error)
	GetAll(offset, limit int, published *bool, search string) ([]models.Lesson, int64, error)
	Update(lesson *models.Lesson) error
	Delete(id uint) error
	ExistsBySlug(slug string) (bool, error)
	GetPopular(limit int) ([]models.Lesson, error)
	IncrementVisits(id uint) error
	GetVisitStats(start time.Time) ([]DailyCount, error)
	PruneVisitStats(before time.Time) (int64, error)
	GetScheduled(now time.Time) ([]models.Lesson, error)
	MarkPublished(id uint, at time.Time) error
	CountAll() (int64, error)
	CountPublished() (int64, error)
	TotalVisits() (int64, error)
}

type lessonRepository struct {
	db *gorm.DB
}

func NewLessonRepository(db *gorm.DB) LessonRepository {
	return &lessonRepository{db: db}
}

func orderedViews(db *gorm.DB) *gorm.DB {
	return db.Order("views.position ASC")
}

func (r *lessonRepository) Create(lesson *models.Lesson) error {
	return r.db.Create(lesson).Error
}

func (r *lessonRepository) GetByID(id uint) (*models.Lesson, error) {
	var lesson models.Lesson
	err := r.db.Preload("Views", orderedViews).First(&lesson, id).Error
	return &lesson, err
}

func (r *lessonRepository) GetPublishedBySlug(slug string) (*models.Lesson, error) {
	var lesson models.Lesson
	now := time.Now().UTC()

	err := r.db.Where("slug = ?", slug).
		Where("published = ?", true).
		Where("publish_at IS NULL OR publish_at <= ?", now).
		Preload("Views", orderedViews).
		First(&lesson).Error
	return &lesson, err
}

func (r *lessonRepository) GetAll(offset, limit int, published *bool, search string) ([]models.Lesson, int64, error) {
	var lessons []models.Lesson
	var total int64

	query := r.db.Model(&models.Lesson{})
	now := time.Now().UTC()

	if published != nil {
		query = query.Where("published = ?", *published)
		if *published {
			query = query.Where("publish_at IS NULL OR publish_at <= ?", now)
		}
	}

	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	query.Count(&total)

	err := query.
		Order("COALESCE(lessons.publish_at, lessons.created_at) DESC").
		Offset(offset).Limit(limit).
		Find(&lessons).Error

	return lessons, total, err
}

func (r *lessonRepository) Update(lesson *models.Lesson) error {
	return r.db.Omit("Views").Save(lesson).Error
}

func (r *lessonRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("lesson_id = ?", id).Delete(&models.LessonViewStat{}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("lesson_id = ?", id).Delete(&models.View{}).Error; err != nil {
			return err
		}

		return tx.Unscoped().Delete(&models.Lesson{}, id).Error
	})
}

func (r *lessonRepository) ExistsBySlug(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Lesson{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *lessonRepository) GetPopular(limit int) ([]models.Lesson, error) {
	var lessons []models.Lesson
	now := time.Now().UTC()

	err := r.db.Where("published = ?", true).
		Where("publish_at IS NULL OR publish_at <= ?", now).
		Order("visits DESC").
		Limit(limit).
		Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepository) IncrementVisits(id uint) error {
	now := time.Now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Lesson{}).
			Where("id = ?", id).
			UpdateColumn("visits", gorm.Expr("visits + ?", 1)).Error; err != nil {
			return err
		}

		result := tx.Model(&models.LessonViewStat{}).
			Where("lesson_id = ? AND date = ?", id, date).
			UpdateColumn("visits", gorm.Expr("visits + ?", 1))
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			stat := models.LessonViewStat{LessonID: id, Date: date, Visits: 1}
			if err := tx.Create(&stat).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *lessonRepository) GetVisitStats(start time.Time) ([]DailyCount, error) {
	var stats []DailyCount

	query := r.db.Model(&models.LessonViewStat{}).
		Select("date AS period, SUM(visits) AS count").
		Group("date")

	if !start.IsZero() {
		query = query.Where("date >= ?", start)
	}

	if err := query.Order("date").Scan(&stats).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *lessonRepository) PruneVisitStats(before time.Time) (int64, error) {
	result := r.db.Unscoped().
		Where("date < ?", before).
		Delete(&models.LessonViewStat{})
	return result.RowsAffected, result.Error
}

func (r *lessonRepository) GetScheduled(now time.Time) ([]models.Lesson, error) {
	var lessons []models.Lesson

	err := r.db.Select("id", "slug", "publish_at").
		Where("published = ?", true).
		Where("publish_at IS NOT NULL AND publish_at <= ?", now).
		Where("published_at IS NULL").
		Find(&lessons).Error
	return lessons, err
}

func (r *lessonRepository) MarkPublished(id uint, at time.Time) error {
	return r.db.Model(&models.Lesson{}).
		Where("id = ?", id).
		Update("published_at", at.UTC()).Error
}

func (r *lessonRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.Lesson{}).Count(&count).Error
	return count, err
}

func (r *lessonRepository) CountPublished() (int64, error) {
	var count int64
	now := time.Now().UTC()

	err := r.db.Model(&models.Lesson{}).
		Where("published = ?", true).
		Where("publish_at IS NULL OR publish_at <= ?", now).
		Count(&count).Error
	return count, err
}

func (r *lessonRepository) TotalVisits() (int64, error) {
	var result struct {
		Total int64
	}

	err := r.db.Model(&models.Lesson{}).
		Select("COALESCE(SUM(visits), 0) AS total").
		Scan(&result).Error
	return result.Total, err
}
