package assistant

import (
	"errors"
	"fmt"

	"finassist/internal/types"
)

// ActionErrorKind classifies a domain failure while executing an action.
type ActionErrorKind string

const (
	ActionErrValidation ActionErrorKind = "validation"
	ActionErrNotFound   ActionErrorKind = "not_found"
)

// ActionError is a recoverable domain failure. The engine turns it into an
// explanatory reply and never returns it to the caller.
type ActionError struct {
	Kind   ActionErrorKind
	Action types.ActionKind
	Field  string
	Detail string
}

func (e *ActionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Action, e.Kind, e.Field, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Action, e.Kind, e.Detail)
}

func validationError(kind types.ActionKind, field, detail string) *ActionError {
	return &ActionError{Kind: ActionErrValidation, Action: kind, Field: field, Detail: detail}
}

func notFoundError(kind types.ActionKind, detail string) *ActionError {
	return &ActionError{Kind: ActionErrNotFound, Action: kind, Detail: detail}
}

// Stage names the engine step a FatalError came from.
type Stage string

const (
	StageContext Stage = "build_context"
	StageExecute Stage = "execute"
	StagePersist Stage = "persist"
)

// FatalError fails the request. Nothing is persisted.
type FatalError struct {
	Stage Stage
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("assistant %s failed: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// ErrEmptyMessage is returned for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// IsFatal reports whether err is a FatalError, returning its stage.
func IsFatal(err error) (Stage, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Stage, true
	}
	return "", false
}
