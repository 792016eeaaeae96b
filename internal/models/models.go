package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/constants"
)

type Lesson struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title       string     `gorm:"not null" json:"title"`
	Slug        string     `gorm:"uniqueIndex;not null" json:"slug"`
	Description string     `gorm:"type:text" json:"description"`
	Published   bool       `gorm:"default:false" json:"published"`
	PublishAt   *time.Time `gorm:"index" json:"publish_at,omitempty"`
	PublishedAt *time.Time `gorm:"index" json:"published_at,omitempty"`
	Visits      int        `gorm:"default:0" json:"visits"`

	Views []View `gorm:"foreignKey:LessonID" json:"views,omitempty"`
}

// ViewCount is the number of views loaded onto the lesson, which is what
// navigation bounds-checks run against.
func (l *Lesson) ViewCount() int {
	return len(l.Views)
}

type View struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LessonID    uint   `gorm:"not null;index" json:"lesson_id"`
	Position    int    `gorm:"not null;default:0" json:"position"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `json:"image_url"`

	Zones ZoneList `gorm:"type:jsonb" json:"zones"`
}

type LessonViewStat struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LessonID uint      `gorm:"not null;index:idx_lesson_view_stats_lesson_date,priority:1" json:"lesson_id"`
	Date     time.Time `gorm:"type:date;not null;index:idx_lesson_view_stats_lesson_date,priority:2" json:"date"`
	Visits   int64     `gorm:"not null;default:0" json:"visits"`

	Lesson Lesson `gorm:"foreignKey:LessonID" json:"-"`
}

type Setting struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CreateLessonRequest struct {
	Title       string       `json:"title" binding:"required"`
	Slug        string       `json:"slug" binding:"omitempty,slug"`
	Description string       `json:"description"`
	Published   bool         `json:"published"`
	PublishAt   OptionalTime `json:"publish_at"`
}

type UpdateLessonRequest struct {
	Title       *string      `json:"title"`
	Slug        *string      `json:"slug" binding:"omitempty,slug"`
	Description *string      `json:"description"`
	Published   *bool        `json:"published"`
	PublishAt   OptionalTime `json:"publish_at"`
}

type PublishLessonRequest struct {
	PublishAt OptionalTime `json:"publish_at"`
}

type CreateViewRequest struct {
	Description string `json:"description"`
	ImageURL    string `json:"image_url" binding:"required"`
}

type UpdateViewRequest struct {
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	Position    *int    `json:"position"`
}

// CreateZoneRequest mirrors the stored record's geometry half; new zones
// always start with no action attached.
type CreateZoneRequest struct {
	Type   string   `json:"type" binding:"required,oneof=rect poly"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
	Points []Point  `json:"points"`
	Label  string   `json:"label" binding:"omitempty,no_html"`
}

// Shape converts the request geometry into the domain form.
func (r CreateZoneRequest) Shape() (Shape, error) {
	rec := ZoneRecord{
		Type:   r.Type,
		X:      r.X,
		Y:      r.Y,
		Width:  r.Width,
		Height: r.Height,
		Points: r.Points,
	}
	return rec.decodeShape()
}

// SetZoneActionRequest carries the editor form fields for one action kind.
// Fields belonging to other kinds are simply ignored, mirroring the form
// only collecting what the chosen kind needs.
type SetZoneActionRequest struct {
	Kind           string       `json:"kind" binding:"required,oneof=none banner quiz targeted"`
	BannerText     string       `json:"banner_text"`
	BannerPosition string       `json:"banner_position" binding:"omitempty,oneof=top bottom"`
	Question       string       `json:"question"`
	Answers        []QuizAnswer `json:"answers"`
	CorrectIndex   int          `json:"correct_index"`
	ShowRationale  bool         `json:"show_rationale"`
	TargetView     *int         `json:"target_view"`
}

// Action assembles the requested variant. Validation happens later against
// the owning lesson, so this only shapes the data.
func (r SetZoneActionRequest) Action() (Action, error) {
	switch ActionKind(r.Kind) {
	case ActionNone:
		return Action{Kind: ActionNone}, nil
	case ActionBanner:
		position := r.BannerPosition
		if position == "" {
			position = constants.BannerPositionBottom
		}
		return Action{
			Kind:   ActionBanner,
			Banner: &BannerAction{Text: r.BannerText, Position: position},
		}, nil
	case ActionQuiz:
		return Action{
			Kind: ActionQuiz,
			Quiz: &QuizAction{
				Question:      r.Question,
				Answers:       r.Answers,
				CorrectIndex:  r.CorrectIndex,
				ShowRationale: r.ShowRationale,
			},
		}, nil
	case ActionTargeted:
		if r.TargetView == nil {
			return Action{}, NewValidationError(KindInvalidTargetView, "target view is required")
		}
		return Action{
			Kind:     ActionTargeted,
			Targeted: &TargetedAction{TargetView: *r.TargetView},
		}, nil
	}
	return Action{}, NewValidationError(KindMalformedZoneRecord, "unknown action kind %q", r.Kind)
}

type UpdateZoneLabelRequest struct {
	Label string `json:"label" binding:"omitempty,no_html"`
}

type ClickRequest struct {
	X float64 `json:"x" binding:"min=0,max=100"`
	Y float64 `json:"y" binding:"min=0,max=100"`
}

type NavigateToRequest struct {
	Target *int `json:"target" binding:"required"`
}

type SelectAnswerRequest struct {
	Option *int `json:"option" binding:"required"`
}

type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

type SiteSettings struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tagline     string `json:"tagline"`
	CrossfadeMs int    `json:"crossfade_ms"`
	Theme       string `json:"theme"`
}

type DispatchKind string

const (
	DispatchBanner   DispatchKind = "banner"
	DispatchQuiz     DispatchKind = "quiz"
	DispatchNavigate DispatchKind = "navigate"
)

type BannerDirective struct {
	Text     string `json:"text"`
	Position string `json:"position"`
}

type QuizStartDirective struct {
	Token string      `json:"token"`
	State RenderState `json:"state"`
}

type NavigateDirective struct {
	Target      int  `json:"target"`
	Sequential  bool `json:"sequential"`
	EndOfLesson bool `json:"end_of_lesson"`
}

// Dispatch is the single behavior produced by a zone click. Exactly the
// pointer matching Kind is set.
type Dispatch struct {
	Kind     DispatchKind        `json:"kind"`
	Banner   *BannerDirective    `json:"banner,omitempty"`
	Quiz     *QuizStartDirective `json:"quiz,omitempty"`
	Navigate *NavigateDirective  `json:"navigate,omitempty"`
}

type SessionState string

const (
	SessionPresented SessionState = "presented"
	SessionAnswered  SessionState = "answered"
	SessionClosed    SessionState = "closed"
)

type OptionMarker string

const (
	MarkerNone      OptionMarker = "none"
	MarkerCorrect   OptionMarker = "correct"
	MarkerIncorrect OptionMarker = "incorrect"
)

type OptionState struct {
	Text     string       `json:"text"`
	Selected bool         `json:"selected"`
	Enabled  bool         `json:"enabled"`
	Marker   OptionMarker `json:"marker"`
}

type Feedback struct {
	Correct bool   `json:"correct"`
	Text    string `json:"text"`
}

// RenderState is everything a client needs to draw the quiz overlay. It
// never includes the correct answer index while the session is open.
type RenderState struct {
	State      SessionState  `json:"state"`
	Question   string        `json:"question"`
	Options    []OptionState `json:"options"`
	CanSubmit  bool          `json:"can_submit"`
	CanDismiss bool          `json:"can_dismiss"`
	Feedback   *Feedback     `json:"feedback,omitempty"`
}

// OptionalTime captures whether a timestamp field was provided in a request
// and its parsed value, so handlers can tell "absent" from "null".
type OptionalTime struct {
	Set   bool       `json:"-"`
	Value *time.Time `json:"-"`
}

func (ot *OptionalTime) UnmarshalJSON(data []byte) error {
	if ot == nil {
		return fmt.Errorf("optional time receiver is nil")
	}

	ot.Set = true

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		ot.Value = nil
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if asString == "" {
			ot.Value = nil
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, asString)
		if err != nil {
			return err
		}
		normalized := parsed.UTC()
		ot.Value = &normalized
		return nil
	}

	var asTime time.Time
	if err := json.Unmarshal(data, &asTime); err != nil {
		return err
	}

	parsed := asTime.UTC()
	ot.Value = &parsed
	return nil
}

// Or returns the stored value if explicitly set, otherwise the fallback.
func (ot OptionalTime) Or(defaultValue *time.Time) *time.Time {
	if ot.Set {
		return ot.Pointer()
	}
	if defaultValue == nil {
		return nil
	}
	copied := defaultValue.UTC()
	return &copied
}

// Pointer returns a UTC copy of the stored pointer.
func (ot OptionalTime) Pointer() *time.Time {
	if ot.Value == nil {
		return nil
	}
	copied := ot.Value.UTC()
	return &copied
}
