package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/background"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/config"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/handlers"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/middleware"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/models"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/repository"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/seed"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/service"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/cache"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

type Application struct {
	cfg *config.Config

	db         *gorm.DB
	cache      *cache.Cache
	rateLimits *middleware.RateLimitManager
	scheduler  *background.Scheduler

	repositories repositoryContainer
	services     serviceContainer
	handlers     handlerContainer

	router *gin.Engine
	server *http.Server
}

type repositoryContainer struct {
	Lesson  repository.LessonRepository
	View    repository.ViewRepository
	Setting repository.SettingRepository
}

type serviceContainer struct {
	Auth       *service.AuthService
	Lesson     *service.LessonService
	Zone       *service.ZoneService
	Quiz       *service.QuizService
	Navigator  *service.Navigator
	Resolver   *service.ResolverService
	Settings   *service.SettingsService
	Statistics *service.StatisticsService
	Upload     *service.UploadService
}

type handlerContainer struct {
	Auth       *handlers.AuthHandler
	Lesson     *handlers.LessonHandler
	Viewer     *handlers.ViewerHandler
	Quiz       *handlers.QuizHandler
	Zone       *handlers.ZoneHandler
	Upload     *handlers.UploadHandler
	Statistics *handlers.StatisticsHandler
	Settings   *handlers.SettingsHandler
	Health     *handlers.HealthHandler
	Cache      *handlers.CacheHandler
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{cfg: cfg}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.runMigrations(); err != nil {
		return nil, err
	}

	if err := app.createIndexes(); err != nil {
		return nil, err
	}

	app.initCache()
	app.initRepositories()
	app.initServices()

	seed.EnsureDefaultSettings(app.repositories.Setting, cfg)
	seed.EnsureDemoLesson(cfg, app.repositories.Lesson, app.services.Lesson, app.services.Zone)

	app.initHandlers()

	app.rateLimits = middleware.NewRateLimitManager(context.Background())
	app.scheduler = background.NewScheduler(background.SchedulerConfig{
		WorkerCount: cfg.SchedulerWorkers,
	})

	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	a.scheduler.Start(context.Background())

	jobs := background.NewJobs(a.scheduler, a.repositories.Lesson, a.cache, a.cfg.StatsRetentionDays)
	if err := jobs.Register(); err != nil {
		return fmt.Errorf("failed to register background jobs: %w", err)
	}

	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
	})

	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(ctx); err != nil {
			logger.Error(err, "Scheduler did not drain in time", nil)
		}
	}

	if a.rateLimits != nil {
		a.rateLimits.Shutdown()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", nil)

	db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(
		&models.Lesson{},
		&models.View{},
		&models.LessonViewStat{},
		&models.Setting{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func (a *Application) createIndexes() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Creating database indexes", nil)

	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_lessons_published ON lessons(published) WHERE published = true",
		"CREATE INDEX IF NOT EXISTS idx_lessons_visits ON lessons(visits DESC)",
		"CREATE INDEX IF NOT EXISTS idx_views_lesson_position ON views(lesson_id, position ASC)",
		"CREATE INDEX IF NOT EXISTS idx_views_zones ON views USING GIN (zones)",
	}

	for _, stmt := range statements {
		if err := a.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// initCache degrades to a disabled cache when Redis is unreachable. Lessons
// and settings then come straight from Postgres on every request.
func (a *Application) initCache() {
	c, err := cache.NewCache(a.cfg.RedisURL, a.cfg.RedisPassword, a.cfg.EnableCache)
	if err != nil {
		logger.Warn("Cache unavailable, continuing without it", map[string]interface{}{
			"error": err.Error(),
		})
		c, _ = cache.NewCache("", "", false)
	}
	a.cache = c
}

func (a *Application) initRepositories() {
	a.repositories = repositoryContainer{
		Lesson:  repository.NewLessonRepository(a.db),
		View:    repository.NewViewRepository(a.db),
		Setting: repository.NewSettingRepository(a.db),
	}
}

func (a *Application) initServices() {
	quiz := service.NewQuizService()
	navigator := service.NewNavigator()

	a.services = serviceContainer{
		Auth:       service.NewAuthService(a.cfg),
		Lesson:     service.NewLessonService(a.repositories.Lesson, a.repositories.View, a.cache),
		Zone:       service.NewZoneService(a.repositories.Lesson, a.repositories.View, a.cache),
		Quiz:       quiz,
		Navigator:  navigator,
		Resolver:   service.NewResolverService(quiz, navigator),
		Settings:   service.NewSettingsService(a.repositories.Setting, a.cache, a.cfg),
		Statistics: service.NewStatisticsService(a.repositories.Lesson, a.repositories.View),
		Upload:     service.NewUploadService(a.cfg.UploadDir, a.cfg.MaxUploadSize, a.repositories.View, a.cache),
	}
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Auth:       handlers.NewAuthHandler(a.services.Auth),
		Lesson:     handlers.NewLessonHandler(a.services.Lesson),
		Viewer:     handlers.NewViewerHandler(a.services.Lesson, a.services.Resolver, a.services.Navigator),
		Quiz:       handlers.NewQuizHandler(a.services.Quiz),
		Zone:       handlers.NewZoneHandler(a.services.Zone),
		Upload:     handlers.NewUploadHandler(a.services.Upload),
		Statistics: handlers.NewStatisticsHandler(a.services.Statistics),
		Settings:   handlers.NewSettingsHandler(a.services.Settings),
		Health:     handlers.NewHealthHandler(a.db, a.cache),
		Cache:      handlers.NewCacheHandler(a.cache),
	}
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(a.cfg.IsProduction()))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(logger.GinLogger())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.RateLimitMiddleware(a.rateLimits, a.cfg))

	router.GET("/health", a.handlers.Health.Health)
	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	uploads := router.Group("/uploads")
	uploads.Use(middleware.UploadsProtection())
	uploads.Static("/", a.cfg.UploadDir)

	api := router.Group("/api")
	{
		api.POST("/auth/login",
			middleware.BucketRateLimit(a.rateLimits, middleware.BucketLogin, a.cfg.LoginRateLimitRequests, a.cfg.RateLimitWindow),
			a.handlers.Auth.Login,
		)

		api.GET("/settings", a.handlers.Settings.GetPublic)

		api.GET("/lessons", a.handlers.Lesson.GetPublished)
		api.GET("/lessons/:slug", a.handlers.Lesson.GetBySlug)
		api.POST("/lessons/:slug/views/:view/zones/:zone/click", a.handlers.Viewer.ClickZone)
		api.POST("/lessons/:slug/views/:view/click", a.handlers.Viewer.ClickAt)
		api.POST("/lessons/:slug/views/:view/advance", a.handlers.Viewer.Advance)
		api.POST("/lessons/:slug/navigate", a.handlers.Viewer.Navigate)

		api.GET("/quiz/:token", a.handlers.Quiz.Get)
		api.POST("/quiz/:token/select", a.handlers.Quiz.Select)
		api.POST("/quiz/:token/submit", a.handlers.Quiz.Submit)
		api.DELETE("/quiz/:token", a.handlers.Quiz.Dismiss)

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(a.cfg.JWTSecret))
		admin.Use(middleware.AdminMiddleware())
		{
			admin.GET("/lessons", a.handlers.Lesson.GetAllAdmin)
			admin.POST("/lessons", a.handlers.Lesson.Create)
			admin.GET("/lessons/:id", a.handlers.Lesson.GetByID)
			admin.PUT("/lessons/:id", a.handlers.Lesson.Update)
			admin.DELETE("/lessons/:id", a.handlers.Lesson.Delete)
			admin.POST("/lessons/:id/publish", a.handlers.Lesson.Publish)
			admin.POST("/lessons/:id/unpublish", a.handlers.Lesson.Unpublish)

			admin.POST("/lessons/:id/views", a.handlers.Lesson.AddView)
			admin.PUT("/lessons/:id/views/:view", a.handlers.Lesson.UpdateView)
			admin.DELETE("/lessons/:id/views/:view", a.handlers.Lesson.DeleteView)

			admin.GET("/lessons/:id/views/:view/zones", a.handlers.Zone.ListZones)
			admin.POST("/lessons/:id/views/:view/zones", a.handlers.Zone.AddZone)
			admin.PUT("/lessons/:id/views/:view/zones/:zone/action", a.handlers.Zone.SetAction)
			admin.PUT("/lessons/:id/views/:view/zones/:zone/label", a.handlers.Zone.UpdateLabel)
			admin.DELETE("/lessons/:id/views/:view/zones/:zone", a.handlers.Zone.DeleteZone)

			admin.POST("/uploads",
				middleware.BucketRateLimit(a.rateLimits, middleware.BucketUpload, a.cfg.UploadRateLimitRequests, a.cfg.RateLimitWindow),
				a.handlers.Upload.Upload,
			)
			admin.GET("/uploads", a.handlers.Upload.List)
			admin.PUT("/uploads/:filename", a.handlers.Upload.Rename)
			admin.DELETE("/uploads/:filename", a.handlers.Upload.Delete)

			admin.GET("/statistics", a.handlers.Statistics.Get)

			admin.GET("/settings", a.handlers.Settings.GetAdmin)
			admin.PUT("/settings", a.handlers.Settings.Update)

			admin.POST("/cache/clear", a.handlers.Cache.Clear)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "route not found",
			"path":  c.Request.URL.Path,
		})
	})

	a.router = router
}
