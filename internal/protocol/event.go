package protocol

import (
	"strings"
	"time"
	"unicode"
)

// Event is an immutable parsed server line. Argument 0 is the command.
type Event struct {
	parts      []string
	raw        string
	receivedAt time.Time
}

// ParseLine tokenizes raw into an Event stamped with receivedAt.
// A line without tokens yields ErrEmptyLine.
func ParseLine(raw string, receivedAt time.Time) (Event, error) {
	parts := Tokenize(raw)
	if len(parts) == 0 {
		return Event{}, ErrEmptyLine
	}
	return Event{parts: parts, raw: raw, receivedAt: receivedAt}, nil
}

// NewEvent builds an event that did not come off the wire.
func NewEvent(command string, args ...string) Event {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, command)
	parts = append(parts, args...)
	return Event{
		parts:      parts,
		raw:        Join(parts...),
		receivedAt: time.Now(),
	}
}

// Command returns argument 0.
func (e Event) Command() string {
	if len(e.parts) == 0 {
		return ""
	}
	return e.parts[0]
}

// Kind classifies the command.
func (e Event) Kind() Kind {
	return ParseKind(e.Command())
}

// Part returns argument i, or "" when out of range.
func (e Event) Part(i int) string {
	if i < 0 || i >= len(e.parts) {
		return ""
	}
	return e.parts[i]
}

// Len returns the number of arguments including the command.
func (e Event) Len() int {
	return len(e.parts)
}

// Parts returns a copy of all arguments including the command.
func (e Event) Parts() []string {
	out := make([]string, len(e.parts))
	copy(out, e.parts)
	return out
}

// Args returns a copy of the arguments after the command.
func (e Event) Args() []string {
	if len(e.parts) < 2 {
		return nil
	}
	out := make([]string, len(e.parts)-1)
	copy(out, e.parts[1:])
	return out
}

// Raw returns the line as received.
func (e Event) Raw() string {
	return e.raw
}

// ReceivedAt returns the local receive time.
func (e Event) ReceivedAt() time.Time {
	return e.receivedAt
}

// Tail returns the raw line with the command and the separating
// whitespace removed.
func (e Event) Tail() string {
	s := strings.TrimLeftFunc(e.raw, unicode.IsSpace)
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return ""
	}
	return strings.TrimLeftFunc(s[idx:], unicode.IsSpace)
}

func (e Event) String() string {
	return e.raw
}
