package reputation

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongLanguage means the export was fetched while the upstream site
	// displayed another language than the canonical one.
	ErrWrongLanguage     = errors.New("reputation export is not in the required language")
	ErrMalformedPayload  = errors.New("malformed reputation export")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmblemNotFound    = errors.New("emblem not found")
	ErrUnsupportedLocale = errors.New("unsupported locale")
)

// ImportError records which import stage failed. It unwraps to the cause so
// callers can match sentinels with errors.Is.
type ImportError struct {
	Stage  string
	UserID uint
	Err    error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import for user %d: %s: %v", e.UserID, e.Stage, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err was caused by the submitted payload rather
// than by the store, i.e. whether resubmitting the same data is pointless.
func IsInputError(err error) bool {
	return errors.Is(err, ErrWrongLanguage) || errors.Is(err, ErrMalformedPayload)
}
