package models

import "fmt"

// DomainError is a named simulation-level failure, reported to callers as
// its own category
type DomainError struct {
	Message string
}

// NewDomainError creates a domain error with a formatted message
func NewDomainError(format string, args ...interface{}) *DomainError {
	return &DomainError{Message: fmt.Sprintf(format, args...)}
}

func (e *DomainError) Error() string {
	return e.Message
}
