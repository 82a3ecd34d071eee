// Package database provides the PostgreSQL connection pool used by the
// traffic journal.
//
// The journal is write-only diagnostics: the client never reads game state
// back from the database.
package database
