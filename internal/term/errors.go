package term

import (
	"errors"
	"fmt"
)

// UnresolvedError reports that a term is still waiting for the resolver.
// It is transient: callers propagate it and retry after another resolution
// pass.
type UnresolvedError struct {
	Item ID
	Name string
}

func (e *UnresolvedError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("item %d (%s) is not resolved yet", e.Item, e.Name)
	}
	return fmt.Sprintf("item %d is not resolved yet", e.Item)
}

// PlaceholderError reports that a term was used before its definition.
type PlaceholderError struct {
	Item ID
	Name string
}

func (e *PlaceholderError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("item %d (%s) has no definition yet", e.Item, e.Name)
	}
	return fmt.Sprintf("item %d has no definition yet", e.Item)
}

// DefineErrorCode categorizes misuse of the define protocol.
type DefineErrorCode string

const (
	// ErrCodeAlreadyDefined indicates Define was called on a defined slot.
	ErrCodeAlreadyDefined DefineErrorCode = "ALREADY_DEFINED"

	// ErrCodeReentrant indicates DefineWith re-entered a slot it is
	// still defining.
	ErrCodeReentrant DefineErrorCode = "REENTRANT_DEFINE"

	// ErrCodeNotUnresolved indicates Resolve was called on a slot that is
	// not Unresolved.
	ErrCodeNotUnresolved DefineErrorCode = "NOT_UNRESOLVED"

	// ErrCodeUnknownItem indicates an ID outside the store.
	ErrCodeUnknownItem DefineErrorCode = "UNKNOWN_ITEM"

	// ErrCodeDuplicateLanguageItem indicates a language item was defined twice.
	ErrCodeDuplicateLanguageItem DefineErrorCode = "DUPLICATE_LANGUAGE_ITEM"
)

// DefineError reports a violation of the one-time define protocol.
type DefineError struct {
	Code    DefineErrorCode
	Item    ID
	Message string
}

func (e *DefineError) Error() string {
	return fmt.Sprintf("%s: item %d: %s", e.Code, e.Item, e.Message)
}

// IsUnresolved returns true if err is or wraps an UnresolvedError.
func IsUnresolved(err error) bool {
	var ue *UnresolvedError
	return errors.As(err, &ue)
}

// IsPlaceholder returns true if err is or wraps a PlaceholderError.
func IsPlaceholder(err error) bool {
	var pe *PlaceholderError
	return errors.As(err, &pe)
}

// IsTransient returns true for conditions that another resolution pass may
// clear.
func IsTransient(err error) bool {
	return IsUnresolved(err) || IsPlaceholder(err)
}
