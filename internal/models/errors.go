package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound        = errors.New("resource not found") // General not found
	ErrChapterNotFound = errors.New("chapter not found")
	ErrPageNotFound    = errors.New("page not found")
	ErrSketchNotFound  = errors.New("sketch not found")

	// Workflow Errors
	ErrInvalidState = errors.New("operation not allowed in current page state")
	ErrNoRevisions  = errors.New("page has no revisions of the requested kind")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
