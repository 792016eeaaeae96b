package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
)

type SettingRepository interface {
	Get(key string) (string, error)
	GetAll() (map[string]string, error)
	Set(key, value string) error
	SetMany(values map[string]string) error
	Delete(key string) error
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(key string) (string, error) {
	var setting models.Setting
	err := r.db.First(&setting, "key = ?", key).Error
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (r *settingRepository) GetAll() (map[string]string, error) {
	var settings []models.Setting
	if err := r.db.Find(&settings).Error; err != nil {
		return nil, err
	}

	values := make(map[string]string, len(settings))
	for _, setting := range settings {
		values[setting.Key] = setting.Value
	}
	return values, nil
}

func (r *settingRepository) Set(key, value string) error {
	setting := &models.Setting{Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value}),
	}).Create(setting).Error
}

func (r *settingRepository) SetMany(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			setting := &models.Setting{Key: key, Value: value}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"value": value}),
			}).Create(setting).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *settingRepository) Delete(key string) error {
	return r.db.Unscoped().Delete(&models.Setting{}, "key = ?", key).Error
}
