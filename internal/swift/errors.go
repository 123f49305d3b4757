package swift

import (
	"errors"
	"fmt"
)

// ParsingError reports a missing or malformed block or field. It always
// carries enough detail to name the offending part of the wire format.
type ParsingError struct {
	Block string
	Field string
	Msg   string
	Err   error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("parsing error: %s", e.Msg)
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

// IsParsingError checks whether err is (or wraps) a ParsingError.
func IsParsingError(err error) bool {
	var pe *ParsingError
	return errors.As(err, &pe)
}

func missingBlock(block string) *ParsingError {
	return &ParsingError{Block: block, Msg: fmt.Sprintf("missing block %s", block)}
}

func missingField(tag string) *ParsingError {
	return &ParsingError{Field: tag, Msg: fmt.Sprintf("missing mandatory field %s", tag)}
}

func fieldError(tag, detail string, err error) *ParsingError {
	return &ParsingError{Field: tag, Msg: fmt.Sprintf("field %s: %s", tag, detail), Err: err}
}
