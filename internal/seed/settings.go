package seed

import (
	"errors"

	"gorm.io/gorm"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/config"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/constants"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/repository"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

// EnsureDefaultSettings creates any missing settings rows. Existing rows are
// left alone so admin edits survive restarts.
func EnsureDefaultSettings(settingRepo repository.SettingRepository, cfg *config.Config) {
	defaults := map[string]string{
		constants.SettingSiteTitle:   cfg.SiteName,
		constants.SettingSiteTagline: "Look closer.",
		constants.SettingCrossfadeMs: constants.DefaultCrossfadeMs,
		constants.SettingViewerTheme: constants.DefaultViewerTheme,
	}

	for key, value := range defaults {
		_, err := settingRepo.Get(key)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error(err, "Failed to check default setting", map[string]interface{}{"key": key})
			continue
		}

		if err := settingRepo.Set(key, value); err != nil {
			logger.Error(err, "Failed to create default setting", map[string]interface{}{"key": key})
			continue
		}

		logger.Info("Created default setting", map[string]interface{}{"key": key})
	}
}
