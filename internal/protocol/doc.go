// Package protocol defines the wire vocabulary of the game protocol.
//
// The protocol is line oriented: one command per CRLF-terminated UTF-8 line,
// whitespace-separated tokens, double quotes grouping tokens that contain
// spaces and backslash escaping the following character.
//
// This package is pure: it tokenizes lines into [Event] values, names every
// known command with a [Kind], and decodes events into the closed set of
// [Message] types. It performs no I/O. Routing lives in the bus package and
// the stateful codec (catalogue assembly, outgoing commands) in the codec
// package.
//
// Conventions:
//   - Numeric fields that fail to parse decode as 0
//   - Optional fields that are absent decode as their zero value
//   - "No move yet" is signalled by either "X" or a NUL byte
package protocol
