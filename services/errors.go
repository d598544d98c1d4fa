package services

import "errors"

var (
	// ErrNotFound: a referenced submission, bounty or user does not exist.
	// Fatal to the request; surfaced as 404.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState: the submission is not in a state the requested
	// action can act on (e.g. re-approving a rejected submission).
	ErrInvalidState = errors.New("invalid submission state")

	// ErrEvaluator: the scoring capability failed or returned output that
	// does not match the schema. Always recovered locally via the fallback
	// heuristic; never surfaced to the end user.
	ErrEvaluator = errors.New("evaluation failed")

	// ErrBudgetExhausted: the evaluator agent has spent its budget.
	// Recoverable the same way evaluator failures are.
	ErrBudgetExhausted = errors.New("agent budget exhausted")
)
