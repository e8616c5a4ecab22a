package pptxtpl

import (
	"errors"
	"fmt"
	"strings"
)

// DocumentError represents a failure to load, parse or write a presentation.
type DocumentError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *DocumentError) Error() string {
	if e.Path != "" && e.Cause != nil {
		return fmt.Sprintf("document error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
	} else if e.Path != "" {
		return fmt.Sprintf("document error during %s of '%s'", e.Operation, e.Path)
	} else if e.Cause != nil {
		return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("document error during %s", e.Operation)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// NewDocumentError creates a new document error
func NewDocumentError(operation, path string, cause error) error {
	return &DocumentError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// DirectiveError represents a directive that is not valid in the template
// grammar. Slide numbers are 1-based; 0 means the slide is unknown.
type DirectiveError struct {
	Slide     int
	Directive string
	Message   string
	Cause     error
}

func (e *DirectiveError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Slide > 0 && e.Directive != "" {
		return fmt.Sprintf("directive error in slide %d near '%s': %s", e.Slide, e.Directive, msg)
	} else if e.Slide > 0 {
		return fmt.Sprintf("directive error in slide %d: %s", e.Slide, msg)
	} else if e.Directive != "" {
		return fmt.Sprintf("directive error near '%s': %s", e.Directive, msg)
	}
	return fmt.Sprintf("directive error: %s", msg)
}

func (e *DirectiveError) Unwrap() error {
	return e.Cause
}

// NewDirectiveError creates a new directive error
func NewDirectiveError(slide int, directive, message string, cause error) error {
	return &DirectiveError{
		Slide:     slide,
		Directive: directive,
		Message:   message,
		Cause:     cause,
	}
}

// EvaluationError represents an error during expression evaluation.
type EvaluationError struct {
	Slide      int
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	if e.Slide > 0 && e.Cause != nil {
		return fmt.Sprintf("evaluation error in slide %d for expression '%s': %v", e.Slide, e.Expression, e.Cause)
	} else if e.Cause != nil {
		return fmt.Sprintf("evaluation error for expression '%s': %v", e.Expression, e.Cause)
	} else if e.Slide > 0 {
		return fmt.Sprintf("evaluation error in slide %d for expression '%s'", e.Slide, e.Expression)
	}
	return fmt.Sprintf("evaluation error for expression '%s'", e.Expression)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError creates a new evaluation error
func NewEvaluationError(slide int, expression string, cause error) error {
	return &EvaluationError{
		Slide:      slide,
		Expression: expression,
		Cause:      cause,
	}
}

// RenderError represents rendered slide markup that no longer parses as
// well-formed XML. Emitting it would corrupt the output file, so rendering
// aborts instead.
type RenderError struct {
	Slide int
	Cause error
}

func (e *RenderError) Error() string {
	if e.Slide > 0 {
		return fmt.Sprintf("rendered slide %d is not well-formed markup: %v", e.Slide, e.Cause)
	}
	return fmt.Sprintf("rendered markup is not well-formed: %v", e.Cause)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new render error
func NewRenderError(slide int, cause error) error {
	return &RenderError{
		Slide: slide,
		Cause: cause,
	}
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	var contextParts []string
	for k, v := range e.Context {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
	}

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsDocumentError checks if an error is a document error
func IsDocumentError(err error) bool {
	var target *DocumentError
	return errors.As(err, &target)
}

// IsDirectiveError checks if an error is a directive error
func IsDirectiveError(err error) bool {
	var target *DirectiveError
	return errors.As(err, &target)
}

// IsEvaluationError checks if an error is an evaluation error
func IsEvaluationError(err error) bool {
	var target *EvaluationError
	return errors.As(err, &target)
}

// IsRenderError checks if an error is a render error
func IsRenderError(err error) bool {
	var target *RenderError
	return errors.As(err, &target)
}
