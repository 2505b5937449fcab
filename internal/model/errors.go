package model

import "errors"

var (
	// ErrNotFound means the referenced questionnaire, question or user does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the acting identity does not own the target record
	ErrUnauthorized = errors.New("not authorized for this record")
)
