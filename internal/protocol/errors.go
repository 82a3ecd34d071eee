package protocol

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrEmptyLine       = errors.New("line contains no tokens")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ProtocolError describes a line that could not be interpreted.
// It is recovered locally and never propagated past the codec.
type ProtocolError struct {
	Line   string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %q", e.Reason, e.Line)
}
