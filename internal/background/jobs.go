package background

import (
	"context"
	"fmt"
	"time"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/repository"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/cache"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

const (
	publishSweepJob = "lessons:publish-sweep"
	statsPruneJob   = "stats:prune"
)

// Jobs owns the recurring maintenance work: sweeping scheduled lessons into
// the published state and pruning aged visit statistics.
type Jobs struct {
	scheduler  *Scheduler
	lessonRepo repository.LessonRepository
	cache      *cache.Cache

	statsRetentionDays int
}

func NewJobs(scheduler *Scheduler, lessonRepo repository.LessonRepository, cacheService *cache.Cache, statsRetentionDays int) *Jobs {
	if statsRetentionDays <= 0 {
		statsRetentionDays = 180
	}

	return &Jobs{
		scheduler:          scheduler,
		lessonRepo:         lessonRepo,
		cache:              cacheService,
		statsRetentionDays: statsRetentionDays,
	}
}

func (j *Jobs) Register() error {
	if err := j.scheduler.ScheduleUnique(Job{
		Name:        publishSweepJob,
		Run:         j.publishSweep,
		Every:       time.Minute,
		Timeout:     30 * time.Second,
		RetryPolicy: RetryPolicy{MaxRetries: 2, Backoff: 5 * time.Second},
	}); err != nil {
		return fmt.Errorf("schedule %s: %w", publishSweepJob, err)
	}

	if err := j.scheduler.ScheduleUnique(Job{
		Name:        statsPruneJob,
		Run:         j.pruneStats,
		Every:       24 * time.Hour,
		Timeout:     5 * time.Minute,
		RetryPolicy: RetryPolicy{MaxRetries: 1, Backoff: time.Minute},
	}); err != nil {
		return fmt.Errorf("schedule %s: %w", statsPruneJob, err)
	}

	return nil
}

// publishSweep stamps PublishedAt on lessons whose PublishAt moment has
// arrived. The lesson is already visible through the slug query by then; the
// sweep settles the bookkeeping and drops the cached list pages that still
// omit it.
func (j *Jobs) publishSweep(ctx context.Context) error {
	now := time.Now().UTC()

	due, err := j.lessonRepo.GetScheduled(now)
	if err != nil {
		return err
	}

	for _, lesson := range due {
		if err := ctx.Err(); err != nil {
			return err
		}

		at := now
		if lesson.PublishAt != nil {
			at = *lesson.PublishAt
		}

		if err := j.lessonRepo.MarkPublished(lesson.ID, at); err != nil {
			logger.Error(err, "Failed to publish scheduled lesson", map[string]interface{}{
				"lesson_id": lesson.ID,
				"slug":      lesson.Slug,
			})
			continue
		}

		j.cache.InvalidateLesson(lesson.Slug)
		j.cache.InvalidateLessonLists()

		logger.Info("Scheduled lesson published", map[string]interface{}{
			"lesson_id": lesson.ID,
			"slug":      lesson.Slug,
		})
	}

	return nil
}

func (j *Jobs) pruneStats(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.statsRetentionDays)

	removed, err := j.lessonRepo.PruneVisitStats(cutoff)
	if err != nil {
		return err
	}

	if removed > 0 {
		logger.Info("Pruned aged visit statistics", map[string]interface{}{
			"rows":   removed,
			"cutoff": cutoff.Format("2006-01-02"),
		})
	}

	return nil
}
