package errors

import (
	"fmt"
)

// ErrorCode is a stable identifier for a failure mode.
type ErrorCode string

const (
	// ConfigInvalid indicates a configuration value failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// DocumentNotFound indicates the file is not open or does not exist
	DocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
	// UnsupportedLanguage indicates the document's language is not indexed
	UnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	// FileTooLarge indicates the document exceeds the index size ceiling
	FileTooLarge ErrorCode = "FILE_TOO_LARGE"
	// ExtractionFailed indicates symbol extraction failed for a document
	ExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	// SymbolNotFound indicates a symbol name or id did not resolve
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// ExportFailed indicates an index or history export could not be written
	ExportFailed ErrorCode = "EXPORT_FAILED"
	// StorageError indicates the history database failed
	StorageError ErrorCode = "STORAGE_ERROR"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType is the kind of remedy a FixAction describes.
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration key
	EditConfig FixActionType = "edit-config"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction is a suggested remedy attached to an error.
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Key         string        `json:"key,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error is a coded symtrail error.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates an Error. When fixes is nil the defaults for code are attached.
func New(code ErrorCode, message string, cause error, fixes []FixAction) *Error {
	if fixes == nil {
		fixes = GetSuggestedFixes(code)
	}
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: fixes,
	}
}

// Wrap is shorthand for New with the default fixes for code.
func Wrap(code ErrorCode, cause error, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), cause, nil)
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "symtrail config show",
			Description: "Inspect the effective configuration",
		},
	},
	FileTooLarge: {
		{
			Type:        EditConfig,
			Key:         "index.maxFileBytes",
			Description: "Raise the size ceiling for indexed documents",
		},
	},
	UnsupportedLanguage: {
		{
			Type:        EditConfig,
			Key:         "index.languages",
			Description: "Add the language id to the indexed set",
		},
	},
	StorageError: {
		{
			Type:        EditConfig,
			Key:         "history.databasePath",
			Description: "Point the history mirror at a writable location",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
