package service

import "errors"

// The error surface exposed upward to the UI layer. Controllers map each of
// these to a specific user-facing message; none may be swallowed silently.
var (
	// ErrNotEntitled: the candidate has not completed membership/payment.
	// Rejected before any session state exists.
	ErrNotEntitled = errors.New("candidate is not entitled to take the test")

	// ErrNotYetAvailable: the assigned exam's window has not opened.
	ErrNotYetAvailable = errors.New("assigned exam is not yet available")

	// ErrExpired: the assigned exam's window has closed.
	ErrExpired = errors.New("assigned exam availability window has expired")

	// ErrAlreadyCompleted: the assigned exam was already submitted; a
	// duplicate submission is rejected, never overwritten.
	ErrAlreadyCompleted = errors.New("test already completed")

	// ErrSubmissionFailed: persistence failed while recording a graded
	// attempt. Surfaced explicitly so the candidate does not retake.
	ErrSubmissionFailed = errors.New("submission failed, do not retake; contact support if this persists")

	// ErrSubmissionInFlight: a submission for this candidate is already
	// being processed (timer expiry racing a manual submit).
	ErrSubmissionInFlight = errors.New("submission already in progress")

	// ErrNoActiveSession: no ongoing session exists for the candidate.
	ErrNoActiveSession = errors.New("no active test session")

	// ErrEmptyQuestionSet: a session with zero questions cannot be scored;
	// failing loudly beats dividing by zero.
	ErrEmptyQuestionSet = errors.New("question set is empty")
)
