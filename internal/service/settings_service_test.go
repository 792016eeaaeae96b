package service

import (
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/config"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/constants"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/repository"
)

type mockSettingRepo struct {
	values map[string]string
	saved  []map[string]string
}

var _ repository.SettingRepository = (*mockSettingRepo)(nil)

func newMockSettingRepo(values map[string]string) *mockSettingRepo {
	if values == nil {
		values = map[string]string{}
	}
	return &mockSettingRepo{values: values}
}

func (m *mockSettingRepo) Get(key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return value, nil
}

func (m *mockSettingRepo) GetAll() (map[string]string, error) {
	out := make(map[string]string, len(m.values))
	for key, value := range m.values {
		out[key] = value
	}
	return out, nil
}

func (m *mockSettingRepo) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *mockSettingRepo) SetMany(values map[string]string) error {
	saved := make(map[string]string, len(values))
	for key, value := range values {
		m.values[key] = value
		saved[key] = value
	}
	m.saved = append(m.saved, saved)
	return nil
}

func (m *mockSettingRepo) Delete(key string) error {
	delete(m.values, key)
	return nil
}

func newSettingsService(t *testing.T, repo *mockSettingRepo) *SettingsService {
	t.Helper()
	cfg := &config.Config{
		SiteName:        "OHS Digital Microscope",
		SiteDescription: "Interactive microscope lessons",
	}
	return NewSettingsService(repo, disabledCache(t), cfg)
}

func TestSettingsServiceDefaults(t *testing.T) {
	svc := newSettingsService(t, newMockSettingRepo(nil))

	settings, err := svc.GetSiteSettings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.Name != "OHS Digital Microscope" {
		t.Fatalf("expected the configured site name, got %q", settings.Name)
	}
	if settings.CrossfadeMs != 400 {
		t.Fatalf("expected the default crossfade, got %d", settings.CrossfadeMs)
	}
	if settings.Theme != "dark" {
		t.Fatalf("expected the default theme, got %q", settings.Theme)
	}
	if settings.Tagline != "" {
		t.Fatalf("expected no tagline by default, got %q", settings.Tagline)
	}
}

func TestSettingsServiceStoredOverrides(t *testing.T) {
	repo := newMockSettingRepo(map[string]string{
		constants.SettingSiteTitle:   "Room 214 Microscope",
		constants.SettingSiteTagline: "Look closer.",
		constants.SettingViewerTheme: "light",
		constants.SettingCrossfadeMs: "250",
	})
	svc := newSettingsService(t, repo)

	settings, err := svc.GetSiteSettings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.Name != "Room 214 Microscope" {
		t.Fatalf("expected the stored title, got %q", settings.Name)
	}
	if settings.Tagline != "Look closer." {
		t.Fatalf("unexpected tagline: %q", settings.Tagline)
	}
	if settings.Theme != "light" {
		t.Fatalf("unexpected theme: %q", settings.Theme)
	}
	if settings.CrossfadeMs != 250 {
		t.Fatalf("unexpected crossfade: %d", settings.CrossfadeMs)
	}

	raw, err := svc.GetRaw()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw[constants.SettingCrossfadeMs] != "250" {
		t.Fatalf("expected the raw row as stored, got %q", raw[constants.SettingCrossfadeMs])
	}
}

func TestSettingsServiceBadStoredCrossfadeFallsBack(t *testing.T) {
	for _, stored := range []string{"abc", "-5", "99999"} {
		repo := newMockSettingRepo(map[string]string{constants.SettingCrossfadeMs: stored})
		svc := newSettingsService(t, repo)

		settings, err := svc.GetSiteSettings()
		if err != nil {
			t.Fatalf("unexpected error for stored %q: %v", stored, err)
		}
		if settings.CrossfadeMs != 400 {
			t.Fatalf("expected fallback to 400 for stored %q, got %d", stored, settings.CrossfadeMs)
		}
	}
}

func TestSettingsServiceUpdateRejectsUnknownKey(t *testing.T) {
	repo := newMockSettingRepo(nil)
	svc := newSettingsService(t, repo)

	err := svc.Update(map[string]string{"mystery_knob": "7"})
	if models.ValidationKind(err) != models.KindInvalidSetting {
		t.Fatalf("expected InvalidSetting, got %v", err)
	}
	if len(repo.saved) != 0 {
		t.Fatalf("expected nothing written after a rejected update")
	}
}

func TestSettingsServiceUpdateValidatesTheme(t *testing.T) {
	svc := newSettingsService(t, newMockSettingRepo(nil))

	err := svc.Update(map[string]string{constants.SettingViewerTheme: "solarized"})
	if models.ValidationKind(err) != models.KindInvalidSetting {
		t.Fatalf("expected InvalidSetting for an unknown theme, got %v", err)
	}
}

func TestSettingsServiceUpdateValidatesCrossfade(t *testing.T) {
	for _, bad := range []string{"-1", "abc", "10001"} {
		svc := newSettingsService(t, newMockSettingRepo(nil))
		err := svc.Update(map[string]string{constants.SettingCrossfadeMs: bad})
		if models.ValidationKind(err) != models.KindInvalidSetting {
			t.Fatalf("expected InvalidSetting for %q, got %v", bad, err)
		}
	}

	repo := newMockSettingRepo(nil)
	svc := newSettingsService(t, repo)
	if err := svc.Update(map[string]string{constants.SettingCrossfadeMs: "250"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.saved) != 1 || repo.saved[0][constants.SettingCrossfadeMs] != "250" {
		t.Fatalf("expected 250 written, got %v", repo.saved)
	}
}

func TestSettingsServiceUpdateSanitizesText(t *testing.T) {
	repo := newMockSettingRepo(nil)
	svc := newSettingsService(t, repo)

	err := svc.Update(map[string]string{
		constants.SettingSiteTitle:   "Onion Lab <b>2026</b>",
		constants.SettingSiteTagline: `<script>alert(1)</script>Look closer.`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.values[constants.SettingSiteTitle] != "Onion Lab 2026" {
		t.Fatalf("expected markup stripped from the title, got %q", repo.values[constants.SettingSiteTitle])
	}
	tagline := repo.values[constants.SettingSiteTagline]
	if strings.Contains(tagline, "<script") {
		t.Fatalf("expected the script stripped, got %q", tagline)
	}
	if !strings.Contains(tagline, "Look closer.") {
		t.Fatalf("expected the visible text kept, got %q", tagline)
	}
}
