package main

import (
	"errors"
	"fmt"
)

// Row is one record of the job list, in column order.
type Row []string

// RowOutcome classifies how processing a single row ended
type RowOutcome string

const (
	OutcomeNoSlug           RowOutcome = "no-slug"
	OutcomeMatchFailed      RowOutcome = "match-failed"
	OutcomeLoadFailed       RowOutcome = "load-failed"
	OutcomeGenerationFailed RowOutcome = "generation-failed"
	OutcomeExtractionFailed RowOutcome = "extraction-failed"
	OutcomeParseFailed      RowOutcome = "parse-failed"
	OutcomeSaveFailed       RowOutcome = "save-failed"
	OutcomeSavedOK          RowOutcome = "saved-ok"
	OutcomeSavedWithError   RowOutcome = "saved-ok-with-error"
	OutcomeSavedNoLog       RowOutcome = "saved-ok-no-log"
)

// RowResult tracks the outcome of processing each row
type RowResult struct {
	Index      int // 0-based data row index
	Slug       string
	PromptFile string
	Artifact   string
	Outcome    RowOutcome
	Error      error
}

// Number is the 1-based data row number shown to operators.
func (r RowResult) Number() int {
	return r.Index + 1
}

// Eligible reports whether the row may receive a completion date.
func (r RowResult) Eligible() bool {
	return r.Outcome == OutcomeSavedOK
}

var (
	ErrMalformedRow       = errors.New("malformed row")
	ErrNoMatch            = errors.New("no prompt match")
	ErrNoPrompts          = errors.New("no prompt files")
	ErrUnreadableResource = errors.New("unreadable prompt resource")
	ErrMissingPromptField = errors.New("missing prompt field")
	ErrGeneration         = errors.New("generation call failed")
	ErrNoJSONMarker       = errors.New(`no JSON block with "version" found`)
	ErrNonJSON            = errors.New("extracted text is not valid JSON")
)

// NoMatchError is returned when the similarity fallback cannot find a
// prompt file scoring above the threshold.
type NoMatchError struct {
	Slug  string
	Best  string
	Score float64
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no prompt with sufficient similarity for slug %q (best match: %s, score=%.2f); create a dedicated prompt file or rename the existing one",
		e.Slug, e.Best, e.Score)
}

func (e *NoMatchError) Unwrap() error {
	return ErrNoMatch
}

// MalformedRowError is returned when a row lacks the category and
// subcategory cells needed to guess a prompt filename.
type MalformedRowError struct {
	Row Row
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row too short to infer category/subcategory: %q", []string(e.Row))
}

func (e *MalformedRowError) Unwrap() error {
	return ErrMalformedRow
}

// IsFatal reports whether err must halt the whole batch instead of
// skipping the current row.
func IsFatal(err error) bool {
	return errors.Is(err, ErrMalformedRow) ||
		errors.Is(err, ErrNoMatch) ||
		errors.Is(err, ErrNoPrompts)
}
