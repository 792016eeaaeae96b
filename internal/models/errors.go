package models

import (
	"errors"
	"fmt"
	"strings"
)

var errValidation = errors.New("models: validation error")

// ErrorKind identifies a validation failure in a machine-readable way so
// handlers can surface it alongside the human message.
type ErrorKind string

const (
	KindEmptyQuestion         ErrorKind = "empty_question"
	KindTooFewAnswers         ErrorKind = "too_few_answers"
	KindTooManyAnswers        ErrorKind = "too_many_answers"
	KindInvalidCorrectIndex   ErrorKind = "invalid_correct_index"
	KindEmptyBannerText       ErrorKind = "empty_banner_text"
	KindInvalidBannerPosition ErrorKind = "invalid_banner_position"
	KindInvalidTargetView     ErrorKind = "invalid_target_view"
	KindOutOfRange            ErrorKind = "out_of_range"
	KindNoSelection           ErrorKind = "no_selection"
	KindMalformedZoneRecord   ErrorKind = "malformed_zone_record"
	KindInvalidShape          ErrorKind = "invalid_shape"
	KindInvalidSetting        ErrorKind = "invalid_setting"
)

type ValidationError struct {
	Kind    ErrorKind
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

func (e *ValidationError) Unwrap() error {
	return errValidation
}

func NewValidationError(kind ErrorKind, format string, args ...interface{}) error {
	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if message == "" {
		message = "invalid input"
	}
	return &ValidationError{Kind: kind, message: message}
}

// IsValidationError reports whether the provided error indicates invalid user input.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, errValidation)
}

// ValidationKind extracts the kind from a validation error, or "" for other errors.
func ValidationKind(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}
