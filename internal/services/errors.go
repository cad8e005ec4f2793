// Package services defines the business logic for check-in sessions, the
// report-upload pipeline, chat sessions, and derived insights. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// The taxonomy mirrors how errors are handled, not where they occur:
//
//   - Validation errors (missing answers, unsupported or oversized files)
//     are reported before any operation is attempted.
//   - Transport errors from the narrative service surface as
//     llm.ErrUnavailable / *llm.APIError; sessions degrade instead of dying.
//   - Cancellation is context.Canceled, never retried and never presented
//     as a failure.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import "errors"

// Auth-related errors.
var (
	// ErrInvalidEmail is returned at signup when the email fails the
	// format check.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword is returned at signup when the password is shorter
	// than the minimum length.
	ErrWeakPassword = errors.New("password too short")

	// ErrEmailTaken is returned at signup when the email already has an
	// account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrBadCredentials is returned at login for an unknown email or a
	// wrong password; the two are deliberately indistinguishable.
	ErrBadCredentials = errors.New("invalid email or password")
)

// Check-in errors.
var (
	// ErrAlreadySubmitted short-circuits a submission when a record for
	// the same local calendar day already exists.
	ErrAlreadySubmitted = errors.New("check-in already submitted today")

	// ErrMissingAnswer is returned when a required question has no chosen
	// answer at submission time.
	ErrMissingAnswer = errors.New("required question unanswered")

	// ErrNotesTooLong bounds the optional notes field.
	ErrNotesTooLong = errors.New("notes exceed 1000 characters")

	// ErrNotReady is returned when a session operation is attempted in a
	// state that does not permit it.
	ErrNotReady = errors.New("session not in a ready state")
)

// Upload errors.
var (
	// ErrSlotOccupied rejects a second file while one is staged.
	ErrSlotOccupied = errors.New("a file is already staged")

	// ErrNoFileStaged is returned when processing starts with nothing staged.
	ErrNoFileStaged = errors.New("no file staged")

	// ErrMultipleFiles rejects more than one file offered at once.
	ErrMultipleFiles = errors.New("only one file may be uploaded at a time")

	// ErrUnsupportedFile rejects a MIME type outside the accepted set.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrFileTooLarge rejects files above the configured ceiling.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// Chat errors.
var (
	// ErrSendInFlight rejects a second send while one request is
	// outstanding.
	ErrSendInFlight = errors.New("a message is already in flight")

	// ErrSignInRequired blocks sends that enable context toggles while
	// unauthenticated, rather than silently ignoring the toggles.
	ErrSignInRequired = errors.New("sign in to use personal context")

	// ErrEmptyMessage rejects blank chat messages.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNothingToRegenerate is returned when regenerate-last finds no
	// user turn to replay.
	ErrNothingToRegenerate = errors.New("no user message to regenerate")
)

// Feedback errors.
var (
	// ErrEmptyFeedback rejects blank feedback submissions.
	ErrEmptyFeedback = errors.New("feedback is empty")
)
