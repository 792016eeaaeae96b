package service

import (
	"strconv"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/config"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/constants"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/repository"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/cache"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/validator"
)

// maxCrossfadeMs keeps the viewer transition inside something a student would
// sit through.
const maxCrossfadeMs = 10000

type SettingsService struct {
	settingRepo repository.SettingRepository
	cache       *cache.Cache
	cfg         *config.Config
}

func NewSettingsService(settingRepo repository.SettingRepository, cacheService *cache.Cache, cfg *config.Config) *SettingsService {
	return &SettingsService{
		settingRepo: settingRepo,
		cache:       cacheService,
		cfg:         cfg,
	}
}

// GetSiteSettings assembles the public settings payload, falling back to
// built-in defaults for anything unset.
func (s *SettingsService) GetSiteSettings() (*models.SiteSettings, error) {
	var cached models.SiteSettings
	if err := s.cache.GetCachedSettings(&cached); err == nil {
		return &cached, nil
	}

	values, err := s.settingRepo.GetAll()
	if err != nil {
		return nil, err
	}

	settings := &models.SiteSettings{
		Name:        s.cfg.SiteName,
		Description: s.cfg.SiteDescription,
		Tagline:     values[constants.SettingSiteTagline],
		CrossfadeMs: crossfadeFrom(values),
		Theme:       constants.DefaultViewerTheme,
	}

	if title := values[constants.SettingSiteTitle]; title != "" {
		settings.Name = title
	}
	if theme := values[constants.SettingViewerTheme]; theme != "" {
		settings.Theme = theme
	}

	s.cache.CacheSettings(settings)

	return settings, nil
}

func crossfadeFrom(values map[string]string) int {
	raw := values[constants.SettingCrossfadeMs]
	if raw == "" {
		raw = constants.DefaultCrossfadeMs
	}

	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 || ms > maxCrossfadeMs {
		ms, _ = strconv.Atoi(constants.DefaultCrossfadeMs)
	}
	return ms
}

// GetRaw returns the stored rows as-is for the admin settings form.
func (s *SettingsService) GetRaw() (map[string]string, error) {
	return s.settingRepo.GetAll()
}

// Update writes whitelisted settings and rejects everything else.
func (s *SettingsService) Update(values map[string]string) error {
	cleaned := make(map[string]string, len(values))

	for key, value := range values {
		switch key {
		case constants.SettingSiteTitle, constants.SettingSiteTagline:
			cleaned[key] = validator.SanitizeString(value)
		case constants.SettingViewerTheme:
			if value != "dark" && value != "light" {
				return models.NewValidationError(models.KindInvalidSetting, "setting %q must be dark or light", key)
			}
			cleaned[key] = value
		case constants.SettingCrossfadeMs:
			ms, err := strconv.Atoi(value)
			if err != nil || ms < 0 || ms > maxCrossfadeMs {
				return models.NewValidationError(models.KindInvalidSetting, "setting %q must be an integer between 0 and %d", key, maxCrossfadeMs)
			}
			cleaned[key] = strconv.Itoa(ms)
		default:
			return models.NewValidationError(models.KindInvalidSetting, "unknown setting %q", key)
		}
	}

	if err := s.settingRepo.SetMany(cleaned); err != nil {
		return err
	}

	s.cache.InvalidateSettings()

	return nil
}
