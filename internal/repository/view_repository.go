package repository

import (
	"gorm.io/gorm"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
)

type ViewRepository interface {
	Create(view *models.View) error
	GetByID(id uint) (*models.View, error)
	GetByLessonAndPosition(lessonID uint, position int) (*models.View, error)
	GetByLesson(lessonID uint) ([]models.View, error)
	Update(view *models.View) error
	UpdateZones(viewID uint, zones models.ZoneList) error
	Delete(id uint) error
	CountByLesson(lessonID uint) (int64, error)
	NextPosition(lessonID uint) (int, error)
	Reorder(lessonID uint, orderedIDs []uint) error
	Resequence(lessonID uint) error
	GetAllWithZones() ([]models.View, error)
	CountAll() (int64, error)
	CountByImageURL(url string) (int64, error)
	RewriteImageURL(oldURL, newURL string) (int64, error)
}

type viewRepository struct {
	db *gorm.DB
}

func NewViewRepository(db *gorm.DB) ViewRepository {
	return &viewRepository{db: db}
}

func (r *viewRepository) Create(view *models.View) error {
	return r.db.Create(view).Error
}

func (r *viewRepository) GetByID(id uint) (*models.View, error) {
	var view models.View
	err := r.db.First(&view, id).Error
	return &view, err
}

func (r *viewRepository) GetByLessonAndPosition(lessonID uint, position int) (*models.View, error) {
	var view models.View
	err := r.db.Where("lesson_id = ? AND position = ?", lessonID, position).
		First(&view).Error
	return &view, err
}

func (r *viewRepository) GetByLesson(lessonID uint) ([]models.View, error) {
	var views []models.View
	err := r.db.Where("lesson_id = ?", lessonID).
		Order("position ASC").
		Find(&views).Error
	return views, err
}

func (r *viewRepository) Update(view *models.View) error {
	return r.db.Save(view).Error
}

func (r *viewRepository) UpdateZones(viewID uint, zones models.ZoneList) error {
	return r.db.Model(&models.View{}).
		Where("id = ?", viewID).
		Update("zones", zones).Error
}

func (r *viewRepository) Delete(id uint) error {
	return r.db.Unscoped().Delete(&models.View{}, id).Error
}

func (r *viewRepository) CountByLesson(lessonID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.View{}).
		Where("lesson_id = ?", lessonID).
		Count(&count).Error
	return count, err
}

func (r *viewRepository) NextPosition(lessonID uint) (int, error) {
	var result struct {
		Max int
	}

	err := r.db.Model(&models.View{}).
		Select("COALESCE(MAX(position), -1) AS max").
		Where("lesson_id = ?", lessonID).
		Scan(&result).Error
	if err != nil {
		return 0, err
	}

	return result.Max + 1, nil
}

// Reorder rewrites positions to match orderedIDs. IDs not in the list keep
// their relative order after the listed ones.
func (r *viewRepository) Reorder(lessonID uint, orderedIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for idx, id := range orderedIDs {
			err := tx.Model(&models.View{}).
				Where("id = ? AND lesson_id = ?", id, lessonID).
				Update("position", idx).Error
			if err != nil {
				return err
			}
		}

		return resequenceTx(tx, lessonID)
	})
}

// Resequence closes position gaps left by a deletion, keeping relative order.
func (r *viewRepository) Resequence(lessonID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return resequenceTx(tx, lessonID)
	})
}

func resequenceTx(tx *gorm.DB, lessonID uint) error {
	var views []models.View

	err := tx.Select("id", "position").
		Where("lesson_id = ?", lessonID).
		Order("position ASC, id ASC").
		Find(&views).Error
	if err != nil {
		return err
	}

	for idx, view := range views {
		if view.Position == idx {
			continue
		}
		err := tx.Model(&models.View{}).
			Where("id = ?", view.ID).
			Update("position", idx).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *viewRepository) GetAllWithZones() ([]models.View, error) {
	var views []models.View
	err := r.db.Select("id", "lesson_id", "position", "zones").
		Find(&views).Error
	return views, err
}

func (r *viewRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.View{}).Count(&count).Error
	return count, err
}

func (r *viewRepository) CountByImageURL(url string) (int64, error) {
	var count int64
	err := r.db.Model(&models.View{}).
		Where("image_url = ?", url).
		Count(&count).Error
	return count, err
}

func (r *viewRepository) RewriteImageURL(oldURL, newURL string) (int64, error) {
	result := r.db.Model(&models.View{}).
		Where("image_url = ?", oldURL).
		Update("image_url", newURL)
	return result.RowsAffected, result.Error
}
