package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/constants"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
)

type ShapeKind string

const (
	ShapeRect ShapeKind = "rect"
	ShapePoly ShapeKind = "poly"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type Polygon struct {
	Points []Point
}

// Shape is the geometry half of a zone. Exactly the pointer matching Kind
// is set. Coordinates are percentages of the view image, 0 to 100.
type Shape struct {
	Kind    ShapeKind
	Rect    *Rect
	Polygon *Polygon
}

func (s Shape) Validate() error {
	switch s.Kind {
	case ShapeRect:
		r := s.Rect
		if r == nil {
			return NewValidationError(KindInvalidShape, "rect zone has no rectangle")
		}
		if r.Width <= 0 || r.Height <= 0 {
			return NewValidationError(KindInvalidShape, "rect dimensions must be positive")
		}
		if r.X < constants.CoordinateMin || r.Y < constants.CoordinateMin ||
			r.X+r.Width > constants.CoordinateMax || r.Y+r.Height > constants.CoordinateMax {
			return NewValidationError(KindInvalidShape, "rect exceeds the 0-100 coordinate space")
		}
	case ShapePoly:
		p := s.Polygon
		if p == nil {
			return NewValidationError(KindInvalidShape, "poly zone has no points")
		}
		if len(p.Points) < constants.MinPolygonPoints {
			return NewValidationError(KindInvalidShape, "polygon needs at least %d points", constants.MinPolygonPoints)
		}
		for _, pt := range p.Points {
			if pt.X < constants.CoordinateMin || pt.X > constants.CoordinateMax ||
				pt.Y < constants.CoordinateMin || pt.Y > constants.CoordinateMax {
				return NewValidationError(KindInvalidShape, "polygon point exceeds the 0-100 coordinate space")
			}
		}
	default:
		return NewValidationError(KindInvalidShape, "unknown shape type %q", string(s.Kind))
	}
	return nil
}

// Contains reports whether the percent coordinate falls inside the shape.
func (s Shape) Contains(x, y float64) bool {
	switch s.Kind {
	case ShapeRect:
		if s.Rect == nil {
			return false
		}
		r := s.Rect
		return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
	case ShapePoly:
		if s.Polygon == nil {
			return false
		}
		return s.Polygon.contains(x, y)
	}
	return false
}

// contains uses even-odd ray casting.
func (p Polygon) contains(x, y float64) bool {
	inside := false
	n := len(p.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := p.Points[i], p.Points[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

type ActionKind string

const (
	ActionNone     ActionKind = "none"
	ActionBanner   ActionKind = "banner"
	ActionQuiz     ActionKind = "quiz"
	ActionTargeted ActionKind = "targeted"
)

type BannerAction struct {
	Text     string
	Position string
}

type TargetedAction struct {
	TargetView int
}

// QuizAnswer doubles as the wire shape inside quizAnswers. Rationale
// serializes explicitly so the correct answer round-trips as null.
type QuizAnswer struct {
	Text      string  `json:"text"`
	Rationale *string `json:"rationale"`
}

type QuizAction struct {
	Question      string
	Answers       []QuizAnswer
	CorrectIndex  int
	ShowRationale bool
}

// Action is the behavior half of a zone, decoded once at the
// deserialization boundary. Exactly the pointer matching Kind is set;
// ActionNone has all three nil.
type Action struct {
	Kind     ActionKind
	Banner   *BannerAction
	Quiz     *QuizAction
	Targeted *TargetedAction
}

// Validate checks an action ahead of an editor commit. viewCount bounds the
// targeted variant; pass a negative count to skip the bounds check.
func (a Action) Validate(viewCount int) error {
	switch a.Kind {
	case ActionNone:
		return nil
	case ActionBanner:
		if a.Banner == nil {
			return NewValidationError(KindEmptyBannerText, "banner action has no payload")
		}
		if strings.TrimSpace(a.Banner.Text) == "" {
			return NewValidationError(KindEmptyBannerText, "banner text is required")
		}
		if a.Banner.Position != constants.BannerPositionTop && a.Banner.Position != constants.BannerPositionBottom {
			return NewValidationError(KindInvalidBannerPosition, "banner position must be %q or %q",
				constants.BannerPositionTop, constants.BannerPositionBottom)
		}
		return nil
	case ActionQuiz:
		if a.Quiz == nil {
			return NewValidationError(KindEmptyQuestion, "quiz action has no payload")
		}
		_, err := a.Quiz.Normalize()
		return err
	case ActionTargeted:
		if a.Targeted == nil {
			return NewValidationError(KindInvalidTargetView, "targeted action has no payload")
		}
		t := a.Targeted.TargetView
		if t < 0 || (viewCount >= 0 && t >= viewCount) {
			return NewValidationError(KindInvalidTargetView, "target view %d is outside the lesson", t)
		}
		return nil
	}
	return NewValidationError(KindMalformedZoneRecord, "unknown action kind %q", string(a.Kind))
}

// Normalize applies the quiz commit rules: the question is trimmed, blank
// answers are dropped with order preserved, the correct index is remapped
// onto the kept answers, and rationales are trimmed, removed entirely when
// ShowRationale is off, and always removed from the correct answer.
func (q QuizAction) Normalize() (QuizAction, error) {
	question := strings.TrimSpace(q.Question)
	if question == "" {
		return QuizAction{}, NewValidationError(KindEmptyQuestion, "quiz question is required")
	}

	kept := make([]QuizAnswer, 0, len(q.Answers))
	newIndex := make(map[int]int, len(q.Answers))
	for i, answer := range q.Answers {
		text := strings.TrimSpace(answer.Text)
		if text == "" {
			continue
		}
		newIndex[i] = len(kept)
		kept = append(kept, QuizAnswer{Text: text, Rationale: answer.Rationale})
	}

	if len(kept) < constants.MinQuizAnswers {
		return QuizAction{}, NewValidationError(KindTooFewAnswers, "quiz needs at least %d answers", constants.MinQuizAnswers)
	}
	if len(kept) > constants.MaxQuizAnswers {
		return QuizAction{}, NewValidationError(KindTooManyAnswers, "quiz allows at most %d answers", constants.MaxQuizAnswers)
	}

	correct, ok := newIndex[q.CorrectIndex]
	if !ok {
		return QuizAction{}, NewValidationError(KindInvalidCorrectIndex, "correct answer index %d does not address a supplied answer", q.CorrectIndex)
	}

	for i := range kept {
		if i == correct || !q.ShowRationale {
			kept[i].Rationale = nil
			continue
		}
		if kept[i].Rationale != nil {
			trimmed := strings.TrimSpace(*kept[i].Rationale)
			if trimmed == "" {
				kept[i].Rationale = nil
			} else {
				kept[i].Rationale = &trimmed
			}
		}
	}

	return QuizAction{
		Question:      question,
		Answers:       kept,
		CorrectIndex:  correct,
		ShowRationale: q.ShowRationale,
	}, nil
}

// Playable reports whether a stored quiz payload is intact enough to open a
// session. Legacy rows that predate commit validation can fail this.
func (q QuizAction) Playable() bool {
	return strings.TrimSpace(q.Question) != "" &&
		len(q.Answers) > 0 &&
		q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Answers)
}

// Zone is the decoded form the rest of the code works with. The flat wire
// record exists only at the JSON boundary.
type Zone struct {
	Shape  Shape
	Label  string
	Action Action
}

// ZoneRecord is the §6-compatible flat storage shape. actionType only ever
// holds "banner" or "quiz"; targeted zones are recognized by targetView
// alone and none zones carry no action fields at all.
type ZoneRecord struct {
	Type              string       `json:"type"`
	X                 *float64     `json:"x,omitempty"`
	Y                 *float64     `json:"y,omitempty"`
	Width             *float64     `json:"width,omitempty"`
	Height            *float64     `json:"height,omitempty"`
	Points            []Point      `json:"points,omitempty"`
	Label             string       `json:"label,omitempty"`
	ActionType        string       `json:"actionType,omitempty"`
	BannerText        *string      `json:"bannerText,omitempty"`
	BannerPosition    *string      `json:"bannerPosition,omitempty"`
	QuizQuestion      *string      `json:"quizQuestion,omitempty"`
	QuizAnswers       []QuizAnswer `json:"quizAnswers,omitempty"`
	QuizCorrectIndex  *int         `json:"quizCorrectIndex,omitempty"`
	QuizShowRationale *bool        `json:"quizShowRationale,omitempty"`
	TargetView        *int         `json:"targetView,omitempty"`
}

// Decode interprets a stored record. The action branch order is a
// compatibility contract and must not change: banner, then quiz, then
// targeted, then none. A record satisfying two branches resolves to the
// first; unknown or leftover fields never fail the read.
func (r ZoneRecord) Decode() (Zone, error) {
	shape, err := r.decodeShape()
	if err != nil {
		return Zone{}, err
	}

	return Zone{
		Shape:  shape,
		Label:  r.Label,
		Action: r.decodeAction(),
	}, nil
}

func (r ZoneRecord) decodeShape() (Shape, error) {
	switch ShapeKind(r.Type) {
	case ShapeRect:
		if r.X == nil || r.Y == nil || r.Width == nil || r.Height == nil {
			return Shape{}, NewValidationError(KindMalformedZoneRecord, "rect zone is missing coordinates")
		}
		return Shape{
			Kind: ShapeRect,
			Rect: &Rect{X: *r.X, Y: *r.Y, Width: *r.Width, Height: *r.Height},
		}, nil
	case ShapePoly:
		if len(r.Points) == 0 {
			return Shape{}, NewValidationError(KindMalformedZoneRecord, "poly zone has no points")
		}
		points := make([]Point, len(r.Points))
		copy(points, r.Points)
		return Shape{
			Kind:    ShapePoly,
			Polygon: &Polygon{Points: points},
		}, nil
	}
	return Shape{}, NewValidationError(KindMalformedZoneRecord, "unknown zone type %q", r.Type)
}

func (r ZoneRecord) decodeAction() Action {
	if r.ActionType == string(ActionBanner) && r.BannerText != nil && strings.TrimSpace(*r.BannerText) != "" {
		position := constants.BannerPositionBottom
		if r.BannerPosition != nil && *r.BannerPosition == constants.BannerPositionTop {
			position = constants.BannerPositionTop
		}
		return Action{
			Kind:   ActionBanner,
			Banner: &BannerAction{Text: *r.BannerText, Position: position},
		}
	}

	if r.ActionType == string(ActionQuiz) && r.QuizQuestion != nil && strings.TrimSpace(*r.QuizQuestion) != "" {
		quiz := &QuizAction{Question: *r.QuizQuestion}
		if len(r.QuizAnswers) > 0 {
			quiz.Answers = make([]QuizAnswer, len(r.QuizAnswers))
			copy(quiz.Answers, r.QuizAnswers)
		}
		if r.QuizCorrectIndex != nil {
			quiz.CorrectIndex = *r.QuizCorrectIndex
		}
		if r.QuizShowRationale != nil {
			quiz.ShowRationale = *r.QuizShowRationale
		}
		return Action{Kind: ActionQuiz, Quiz: quiz}
	}

	if r.TargetView != nil {
		return Action{
			Kind:     ActionTargeted,
			Targeted: &TargetedAction{TargetView: *r.TargetView},
		}
	}

	return Action{Kind: ActionNone}
}

// Record encodes the zone back into the flat wire shape. Only the active
// action variant's fields are written, so a kind switch can never leak
// stale properties into storage.
func (z Zone) Record() ZoneRecord {
	rec := ZoneRecord{
		Type:  string(z.Shape.Kind),
		Label: z.Label,
	}

	switch z.Shape.Kind {
	case ShapeRect:
		if z.Shape.Rect != nil {
			r := *z.Shape.Rect
			rec.X, rec.Y, rec.Width, rec.Height = &r.X, &r.Y, &r.Width, &r.Height
		}
	case ShapePoly:
		if z.Shape.Polygon != nil {
			rec.Points = make([]Point, len(z.Shape.Polygon.Points))
			copy(rec.Points, z.Shape.Polygon.Points)
		}
	}

	switch z.Action.Kind {
	case ActionBanner:
		if z.Action.Banner != nil {
			b := *z.Action.Banner
			rec.ActionType = string(ActionBanner)
			rec.BannerText = &b.Text
			rec.BannerPosition = &b.Position
		}
	case ActionQuiz:
		if z.Action.Quiz != nil {
			q := *z.Action.Quiz
			rec.ActionType = string(ActionQuiz)
			rec.QuizQuestion = &q.Question
			rec.QuizAnswers = make([]QuizAnswer, len(q.Answers))
			copy(rec.QuizAnswers, q.Answers)
			rec.QuizCorrectIndex = &q.CorrectIndex
			rec.QuizShowRationale = &q.ShowRationale
		}
	case ActionTargeted:
		if z.Action.Targeted != nil {
			t := z.Action.Targeted.TargetView
			rec.TargetView = &t
		}
	}

	return rec
}

func (z Zone) MarshalJSON() ([]byte, error) {
	return json.Marshal(z.Record())
}

func (z *Zone) UnmarshalJSON(data []byte) error {
	var rec ZoneRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return NewValidationError(KindMalformedZoneRecord, "unreadable zone record: %v", err)
	}

	decoded, err := rec.Decode()
	if err != nil {
		return err
	}

	*z = decoded
	return nil
}

// ZoneList is the jsonb column type holding a view's zones.
type ZoneList []Zone

// DecodeZones parses a stored zone document. A document that is not a JSON
// array yields an empty list and a single error; a malformed element is
// skipped and reported while the rest of the list survives.
func DecodeZones(data []byte) (ZoneList, []error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ZoneList{}, []error{
			NewValidationError(KindMalformedZoneRecord, "zone list is not a JSON array: %v", err),
		}
	}

	zones := make(ZoneList, 0, len(raw))
	var errs []error
	for i, element := range raw {
		var zone Zone
		if err := json.Unmarshal(element, &zone); err != nil {
			errs = append(errs, NewValidationError(KindMalformedZoneRecord, "zone %d: %v", i, err))
			continue
		}
		zones = append(zones, zone)
	}
	return zones, errs
}

// Scan recovers rather than fails: a corrupt cell must not take down the
// lesson it belongs to, so unreadable content degrades to fewer zones.
func (zl *ZoneList) Scan(value interface{}) error {
	if value == nil {
		*zl = ZoneList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan ZoneList")
	}

	zones, errs := DecodeZones(bytes)
	for _, err := range errs {
		logger.Warn("Dropping unreadable zone record", map[string]interface{}{"error": err.Error()})
	}

	*zl = zones
	return nil
}

func (zl ZoneList) Value() (driver.Value, error) {
	if len(zl) == 0 {
		return nil, nil
	}
	return json.Marshal(zl)
}
