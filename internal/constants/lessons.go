package constants

const (
	// MinQuizAnswers is the smallest answer set a quiz action may carry.
	MinQuizAnswers = 2
	// MaxQuizAnswers caps the answer set so the overlay stays a single column.
	MaxQuizAnswers = 4

	// MinPolygonPoints is the smallest vertex count for a polygonal zone.
	MinPolygonPoints = 3

	// CoordinateMin and CoordinateMax bound zone geometry. Coordinates are
	// percentages relative to the view image, not pixels.
	CoordinateMin = 0.0
	CoordinateMax = 100.0

	// BannerPositionTop and BannerPositionBottom are the only banner anchors.
	BannerPositionTop    = "top"
	BannerPositionBottom = "bottom"

	// DefaultLessonPageSize defines the default page size for lesson listings.
	DefaultLessonPageSize = 12
	// MaxLessonPageSize defines an upper bound for lesson listing pages.
	MaxLessonPageSize = 50

	// SettingSiteTitle names the public site title row.
	SettingSiteTitle = "site_title"
	// SettingSiteTagline names the public tagline row.
	SettingSiteTagline = "site_tagline"
	// SettingCrossfadeMs names the viewer crossfade duration row (milliseconds).
	SettingCrossfadeMs = "viewer_crossfade_ms"
	// SettingViewerTheme names the viewer color theme row.
	SettingViewerTheme = "viewer_theme"

	// DefaultCrossfadeMs is the viewer crossfade applied until an admin changes it.
	DefaultCrossfadeMs = "400"
	// DefaultViewerTheme is the viewer theme applied until an admin changes it.
	DefaultViewerTheme = "dark"
)
