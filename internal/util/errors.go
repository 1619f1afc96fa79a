package util

import "errors"

var (
	ErrTestNotFound         = errors.New("mock test not found")
	ErrQuestionsNotFound    = errors.New("no questions found for mock test")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionClosed        = errors.New("session is not in progress")
	ErrSubmissionInProgress = errors.New("submission already in progress")
	ErrPersistenceFailure   = errors.New("failed to save submission, please retry")
	ErrInvalidOption        = errors.New("option must be one of A, B, C, D")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConfirmationRequired = errors.New("time remains, confirm to submit")
)
