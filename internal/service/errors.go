package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEditorLocked       = errors.New("editor is locked: no admin password configured")

	ErrSlugTaken   = errors.New("slug already in use")
	ErrLessonEmpty = errors.New("lesson has no views")

	ErrSessionNotFound = errors.New("quiz session not found")
	ErrAlreadyAnswered = errors.New("quiz already answered")
	ErrNotYetAnswered  = errors.New("quiz not answered yet")

	ErrImageInUse        = errors.New("image is referenced by a view")
	ErrImageNotFound     = errors.New("image not found")
	ErrInvalidUploadName = errors.New("invalid image name")
	ErrUnsupportedUpload = errors.New("file type not allowed")
	ErrUploadTooLarge    = errors.New("file too large")
)
