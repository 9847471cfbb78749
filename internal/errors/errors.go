// Package errors provides centralized error handling with category tagging
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	// Classification errors
	CategoryImageDecode ErrorCategory = "image-decode"
	CategoryInference   ErrorCategory = "inference"
	CategoryLabelIndex  ErrorCategory = "label-index"

	// Storage errors
	CategoryBlobStorage ErrorCategory = "blob-storage"
	CategoryDatabase    ErrorCategory = "database"
	CategoryNotFound    ErrorCategory = "not-found"

	// Catalog mutation errors
	CategoryInvalidUpdate ErrorCategory = "invalid-update"
	CategoryInvalidID     ErrorCategory = "invalid-id"
	CategoryValidation    ErrorCategory = "validation"

	// Pipeline consistency errors
	CategoryIntegrity     ErrorCategory = "integrity"
	CategoryPartialDelete ErrorCategory = "partial-delete"

	// Ambient categories
	CategoryModelInit     ErrorCategory = "model-initialization"
	CategoryModelLoad     ErrorCategory = "model-loading"
	CategoryLabelLoad     ErrorCategory = "label-loading"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryNetwork       ErrorCategory = "network"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with component, category and context metadata
type EnhancedError struct {
	Err       error          // Original error
	Component string         // Component where error occurred
	Category  ErrorCategory  // Error category for better grouping
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error type checking; two enhanced errors match when their
// categories match, otherwise matching is delegated to the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetCategory returns the error category
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error builder wrapping err
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new builder around a formatted error
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Wrap is an alias of New for call sites that read better with it
func Wrap(err error) *ErrorBuilder {
	return New(err)
}

// Component sets the component name (auto-detected if not set)
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build creates the EnhancedError
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
	if ee.Component == "" {
		ee.Component = detectComponent()
	}
	if ee.Category == "" {
		ee.Category = CategoryGeneric
	}
	return ee
}

// Component registry for call-stack based component detection
var componentRegistry = map[string]string{
	"garmentnet":    "garmentnet",
	"labels":        "labels",
	"datastore":     "datastore",
	"pipeline":      "pipeline",
	"recommend":     "recommend",
	"conf":          "configuration",
	"api":           "api",
	"observability": "observability",
}

// detectComponent walks the call stack and maps the first recognizable
// package to a registered component name.
func detectComponent() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)

	for i := range n {
		fn := runtime.FuncForPC(pcs[i])
		if fn == nil {
			continue
		}
		funcName := fn.Name()
		if strings.Contains(funcName, "closet-go/internal/errors") {
			continue
		}
		for pattern, component := range componentRegistry {
			if strings.Contains(funcName, "internal/"+pattern) {
				return component
			}
		}
	}
	return ComponentUnknown
}

// Standard library passthrough functions
// These allow this package to be a drop-in replacement for the standard errors package

// NewStd creates a new standard error (passthrough to standard library)
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target (passthrough to standard library)
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target (passthrough to standard library)
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err (passthrough to standard library)
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors (passthrough to standard library)
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory checks if an error is an EnhancedError with the specified category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// IsNotFound checks if an error is an EnhancedError with CategoryNotFound.
// This is commonly used for expected conditions like unknown record ids.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}

// IsIntegrity checks for the broken blob/record pairing condition.
func IsIntegrity(err error) bool {
	return IsCategory(err, CategoryIntegrity)
}
