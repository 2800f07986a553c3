package interchange

import "fmt"

// ParseError is a document that could not be read in its expected format.
// Nothing is imported or restored when one is returned.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
