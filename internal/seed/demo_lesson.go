package seed

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/config"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/constants"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/repository"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

//go:embed data/demo/*.svg
var demoImagesFS embed.FS

const demoSlug = "exploring-the-onion-skin"

// EnsureDemoLesson seeds one published lesson on a fresh install so the
// viewer has something to explore. It runs only when SEED_DEMO_LESSON is set
// and the lessons table is empty.
func EnsureDemoLesson(cfg *config.Config, lessonRepo repository.LessonRepository, lessonService *service.LessonService, zoneService *service.ZoneService) {
	if !cfg.SeedDemoLesson {
		return
	}

	count, err := lessonRepo.CountAll()
	if err != nil {
		logger.Error(err, "Failed to count lessons before seeding", nil)
		return
	}
	if count > 0 {
		return
	}

	if err := writeDemoImages(cfg.UploadDir); err != nil {
		logger.Error(err, "Failed to write demo images", nil)
		return
	}

	if err := buildDemoLesson(lessonService, zoneService); err != nil {
		logger.Error(err, "Failed to seed demo lesson", nil)
		return
	}

	logger.Info("Seeded demo lesson", map[string]interface{}{"slug": demoSlug})
}

func writeDemoImages(uploadDir string) error {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return err
	}

	entries, err := fs.ReadDir(demoImagesFS, "data/demo")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		target := filepath.Join(uploadDir, entry.Name())
		if _, err := os.Stat(target); err == nil {
			continue
		}

		data, err := demoImagesFS.ReadFile("data/demo/" + entry.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return err
		}
	}

	return nil
}

type demoZone struct {
	view   int
	zone   models.CreateZoneRequest
	action *models.SetZoneActionRequest
}

func buildDemoLesson(lessonService *service.LessonService, zoneService *service.ZoneService) error {
	lesson, err := lessonService.Create(models.CreateLessonRequest{
		Title:       "Exploring the Onion Skin",
		Slug:        demoSlug,
		Description: "Step through an onion epidermis slide, from the full field down to a single nucleus.",
	})
	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}

	views := []models.CreateViewRequest{
		{ImageURL: "/uploads/onion-overview.svg", Description: "The full field at 40x. Click a cell to look closer."},
		{ImageURL: "/uploads/onion-cell.svg", Description: "A single cell at 400x."},
		{ImageURL: "/uploads/onion-nucleus.svg", Description: "The nucleus at 1000x."},
	}
	for i, req := range views {
		if _, err := lessonService.AddView(lesson.ID, req); err != nil {
			return fmt.Errorf("add view %d: %w", i, err)
		}
	}

	chloroplast := "Onion epidermis comes from the bulb, which grows underground, so its cells carry no chloroplasts."
	airBubble := "Air bubbles have a thick dark outline and sit on top of the specimen, not inside the cytoplasm."

	zones := []demoZone{
		{
			view: 0,
			zone: models.CreateZoneRequest{
				Type: "rect",
				X: f64(38), Y: f64(33), Width: f64(27), Height: f64(29),
				Label: "Epidermal cell",
			},
			action: &models.SetZoneActionRequest{Kind: "targeted", TargetView: intp(1)},
		},
		{
			view: 0,
			zone: models.CreateZoneRequest{
				Type: "rect",
				X: f64(2), Y: f64(2), Width: f64(96), Height: f64(12),
				Label: "Cell layer",
			},
			action: &models.SetZoneActionRequest{
				Kind:           "banner",
				BannerText:     "These brick-shaped cells tile the onion's skin in a single layer.",
				BannerPosition: constants.BannerPositionTop,
			},
		},
		{
			view: 1,
			zone: models.CreateZoneRequest{
				Type: "poly",
				Points: []models.Point{
					{X: 37.5, Y: 33}, {X: 50, Y: 50}, {X: 37.5, Y: 67}, {X: 25, Y: 50},
				},
				Label: "Dark round body",
			},
			action: &models.SetZoneActionRequest{
				Kind:     "quiz",
				Question: "What is the dark round body inside the cell?",
				Answers: []models.QuizAnswer{
					{Text: "The nucleus"},
					{Text: "A chloroplast", Rationale: &chloroplast},
					{Text: "An air bubble", Rationale: &airBubble},
				},
				CorrectIndex:  0,
				ShowRationale: true,
			},
		},
		{
			view: 1,
			zone: models.CreateZoneRequest{
				Type: "rect",
				X: f64(55), Y: f64(60), Width: f64(30), Height: f64(20),
				Label: "Central vacuole",
			},
		},
		{
			view: 2,
			zone: models.CreateZoneRequest{
				Type: "rect",
				X: f64(25), Y: f64(15), Width: f64(50), Height: f64(60),
				Label: "Chromatin",
			},
			action: &models.SetZoneActionRequest{
				Kind:           "banner",
				BannerText:     "Chromatin threads condense into chromosomes when the cell divides.",
				BannerPosition: constants.BannerPositionBottom,
			},
		},
		{
			view: 2,
			zone: models.CreateZoneRequest{
				Type: "rect",
				X: f64(2), Y: f64(86), Width: f64(25), Height: f64(12),
				Label: "Back to the full field",
			},
			action: &models.SetZoneActionRequest{Kind: "targeted", TargetView: intp(0)},
		},
	}

	for _, dz := range zones {
		_, index, err := zoneService.AddZone(lesson.ID, dz.view, dz.zone)
		if err != nil {
			return fmt.Errorf("add zone %q: %w", dz.zone.Label, err)
		}
		if dz.action == nil {
			continue
		}
		if _, err := zoneService.SetAction(lesson.ID, dz.view, index, *dz.action); err != nil {
			return fmt.Errorf("set action on %q: %w", dz.zone.Label, err)
		}
	}

	if _, err := lessonService.Publish(lesson.ID, models.PublishLessonRequest{}); err != nil {
		return fmt.Errorf("publish lesson: %w", err)
	}

	return nil
}

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }
